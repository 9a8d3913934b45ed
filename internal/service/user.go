package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"medbook/internal/domain"
	"medbook/internal/repository"
	"medbook/pkg/auth"
)

type UserServiceImpl struct {
	repo   repository.UserRepository
	logger *zap.Logger
}

func NewUserService(repo repository.UserRepository, logger *zap.Logger) *UserServiceImpl {
	return &UserServiceImpl{
		repo:   repo,
		logger: logger,
	}
}

func (s *UserServiceImpl) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserServiceImpl) Update(ctx context.Context, actor domain.Actor, id int64, dto domain.UpdateUserDTO) error {
	if actor.UserID != id && actor.Role != domain.UserRoleAdmin {
		return domain.ErrForbidden
	}

	// Деактивация аккаунта доступна только администратору.
	if dto.IsActive != nil && actor.Role != domain.UserRoleAdmin {
		return domain.ErrForbidden
	}

	if err := s.repo.Update(ctx, id, dto); err != nil {
		s.logger.Error("ошибка обновления пользователя", zap.Int64("user_id", id), zap.Error(err))
		return err
	}
	return nil
}

func (s *UserServiceImpl) UpdatePassword(ctx context.Context, actor domain.Actor, id int64, dto domain.PasswordUpdateDTO) error {
	if actor.UserID != id {
		return domain.ErrForbidden
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	match, err := auth.VerifyPassword(dto.OldPassword, user.PasswordHash)
	if err != nil || !match {
		return domain.ErrInvalidPassword
	}

	hash, err := auth.HashPassword(dto.NewPassword)
	if err != nil {
		s.logger.Error("ошибка при хешировании пароля", zap.Error(err))
		return errors.New("ошибка при смене пароля")
	}

	if err := s.repo.UpdatePassword(ctx, id, hash); err != nil {
		s.logger.Error("ошибка смены пароля", zap.Int64("user_id", id), zap.Error(err))
		return err
	}

	s.logger.Info("пароль изменен", zap.Int64("user_id", id))
	return nil
}

func (s *UserServiceImpl) List(ctx context.Context, limit, offset int) ([]domain.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.List(ctx, limit, offset)
}
