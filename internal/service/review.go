package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"medbook/internal/domain"
	"medbook/internal/repository"
)

type ReviewServiceImpl struct {
	repo        repository.ReviewRepository
	doctorRepo  repository.DoctorRepository
	bookingRepo repository.BookingRepository
	logger      *zap.Logger
}

func NewReviewService(
	repo repository.ReviewRepository,
	doctorRepo repository.DoctorRepository,
	bookingRepo repository.BookingRepository,
	logger *zap.Logger,
) *ReviewServiceImpl {
	return &ReviewServiceImpl{
		repo:        repo,
		doctorRepo:  doctorRepo,
		bookingRepo: bookingRepo,
		logger:      logger,
	}
}

// Create принимает отзыв только от пациента завершенного приема и только
// один на запись. После сохранения рейтинг врача пересчитывается по всем
// его отзывам.
func (s *ReviewServiceImpl) Create(ctx context.Context, actor domain.Actor, dto domain.CreateReviewDTO) (int64, error) {
	if actor.Role != domain.UserRolePatient {
		return 0, domain.ErrForbidden
	}

	booking, err := s.bookingRepo.GetByID(ctx, dto.BookingID)
	if err != nil {
		return 0, err
	}
	if booking.PatientID != actor.UserID {
		return 0, domain.ErrForbidden
	}
	if booking.DoctorID != dto.DoctorID {
		return 0, errors.New("запись не относится к указанному врачу")
	}
	if booking.Status != domain.BookingStatusCompleted {
		return 0, errors.New("отзыв можно оставить только после завершенного приема")
	}

	if existing, err := s.repo.GetByBookingID(ctx, dto.BookingID); err == nil && existing != nil {
		return 0, errors.New("отзыв на эту запись уже оставлен")
	}

	id, err := s.repo.Create(ctx, actor.UserID, dto)
	if err != nil {
		s.logger.Error("ошибка создания отзыва",
			zap.Int64("booking_id", dto.BookingID),
			zap.Error(err))
		return 0, err
	}

	s.recalculateRating(ctx, dto.DoctorID)

	s.logger.Info("создан отзыв",
		zap.Int64("review_id", id),
		zap.Int64("doctor_id", dto.DoctorID),
		zap.Int("rating", dto.Rating))
	return id, nil
}

func (s *ReviewServiceImpl) GetByID(ctx context.Context, id int64) (*domain.Review, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ReviewServiceImpl) Update(ctx context.Context, actor domain.Actor, id int64, dto domain.UpdateReviewDTO) error {
	review, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if review.PatientID != actor.UserID && actor.Role != domain.UserRoleAdmin {
		return domain.ErrForbidden
	}

	if err := s.repo.Update(ctx, id, dto); err != nil {
		s.logger.Error("ошибка обновления отзыва", zap.Int64("review_id", id), zap.Error(err))
		return err
	}

	if dto.Rating != nil {
		s.recalculateRating(ctx, review.DoctorID)
	}
	return nil
}

func (s *ReviewServiceImpl) Delete(ctx context.Context, actor domain.Actor, id int64) error {
	review, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if review.PatientID != actor.UserID && actor.Role != domain.UserRoleAdmin {
		return domain.ErrForbidden
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("ошибка удаления отзыва", zap.Int64("review_id", id), zap.Error(err))
		return err
	}

	s.recalculateRating(ctx, review.DoctorID)
	return nil
}

func (s *ReviewServiceImpl) List(ctx context.Context, filter domain.ReviewFilter) ([]domain.Review, int, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}

	reviews, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.CountByFilter(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return reviews, total, nil
}

// recalculateRating — пересчет по фактическим отзывам, а не инкремент:
// повторный вызов дает тот же результат.
func (s *ReviewServiceImpl) recalculateRating(ctx context.Context, doctorID int64) {
	if err := s.doctorRepo.RecalculateRating(ctx, doctorID); err != nil {
		s.logger.Error("ошибка пересчета рейтинга врача",
			zap.Int64("doctor_id", doctorID),
			zap.Error(err))
	}
}
