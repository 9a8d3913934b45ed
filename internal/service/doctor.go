package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"medbook/internal/domain"
	"medbook/internal/repository"
	"medbook/internal/storage"
)

type DoctorServiceImpl struct {
	repo        repository.DoctorRepository
	userRepo    repository.UserRepository
	fileStorage storage.FileStorage
	logger      *zap.Logger
}

func NewDoctorService(
	repo repository.DoctorRepository,
	userRepo repository.UserRepository,
	fileStorage storage.FileStorage,
	logger *zap.Logger,
) *DoctorServiceImpl {
	return &DoctorServiceImpl{
		repo:        repo,
		userRepo:    userRepo,
		fileStorage: fileStorage,
		logger:      logger,
	}
}

// Create создает профиль врача для текущего пользователя. Профиль попадает
// на модерацию: записываться к врачу можно только после одобрения
// администратором.
func (s *DoctorServiceImpl) Create(ctx context.Context, actor domain.Actor, dto domain.CreateDoctorDTO) (int64, error) {
	userID := actor.UserID
	if actor.Role == domain.UserRoleAdmin && dto.UserID != 0 {
		userID = dto.UserID
	} else if actor.Role != domain.UserRoleDoctor {
		return 0, domain.ErrForbidden
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	if user.Role != domain.UserRoleDoctor {
		return 0, errors.New("пользователь не имеет роли врача")
	}

	if existing, err := s.repo.GetByUserID(ctx, userID); err == nil && existing != nil {
		return 0, errors.New("профиль врача уже существует")
	}

	id, err := s.repo.Create(ctx, userID, dto)
	if err != nil {
		s.logger.Error("ошибка создания профиля врача", zap.Int64("user_id", userID), zap.Error(err))
		return 0, err
	}

	s.logger.Info("создан профиль врача",
		zap.Int64("doctor_id", id),
		zap.Int64("user_id", userID),
		zap.String("specialization", dto.Specialization))
	return id, nil
}

func (s *DoctorServiceImpl) GetByID(ctx context.Context, id int64) (*domain.Doctor, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *DoctorServiceImpl) GetByUserID(ctx context.Context, userID int64) (*domain.Doctor, error) {
	return s.repo.GetByUserID(ctx, userID)
}

func (s *DoctorServiceImpl) Update(ctx context.Context, actor domain.Actor, id int64, dto domain.UpdateDoctorDTO) error {
	if err := s.requireOwnerOrAdmin(ctx, actor, id); err != nil {
		return err
	}

	if err := s.repo.Update(ctx, id, dto); err != nil {
		s.logger.Error("ошибка обновления профиля врача", zap.Int64("doctor_id", id), zap.Error(err))
		return err
	}
	return nil
}

// List возвращает каталог врачей. Не администратору показываются только
// одобренные профили независимо от фильтра.
func (s *DoctorServiceImpl) List(ctx context.Context, filter domain.DoctorFilter) ([]domain.Doctor, int, error) {
	if filter.ApprovalStatus == nil {
		approved := domain.DoctorApprovalApproved
		filter.ApprovalStatus = &approved
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	return s.repo.List(ctx, filter)
}

func (s *DoctorServiceImpl) SetApprovalStatus(ctx context.Context, actor domain.Actor, id int64, status domain.DoctorApprovalStatus) error {
	if actor.Role != domain.UserRoleAdmin {
		return domain.ErrForbidden
	}
	if status != domain.DoctorApprovalApproved && status != domain.DoctorApprovalRejected {
		return errors.New("недопустимый статус модерации")
	}

	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}

	if err := s.repo.SetApprovalStatus(ctx, id, status); err != nil {
		s.logger.Error("ошибка модерации профиля врача", zap.Int64("doctor_id", id), zap.Error(err))
		return err
	}

	s.logger.Info("профиль врача прошел модерацию",
		zap.Int64("doctor_id", id),
		zap.String("status", string(status)))
	return nil
}

func (s *DoctorServiceImpl) UploadProfilePhoto(ctx context.Context, actor domain.Actor, doctorID int64, photo []byte, filename string) error {
	if err := s.requireOwnerOrAdmin(ctx, actor, doctorID); err != nil {
		return err
	}

	doctor, err := s.repo.GetByID(ctx, doctorID)
	if err != nil {
		return err
	}

	url, err := s.fileStorage.UploadFile(ctx, photo, filename)
	if err != nil {
		s.logger.Error("ошибка загрузки фотографии", zap.Int64("doctor_id", doctorID), zap.Error(err))
		return err
	}

	if err := s.repo.UpdateProfilePhoto(ctx, doctorID, url); err != nil {
		return err
	}

	if doctor.PhotoURL != "" {
		if err := s.fileStorage.DeleteFile(ctx, doctor.PhotoURL); err != nil {
			s.logger.Warn("не удалось удалить старую фотографию", zap.Error(err))
		}
	}
	return nil
}

func (s *DoctorServiceImpl) DeleteProfilePhoto(ctx context.Context, actor domain.Actor, doctorID int64) error {
	if err := s.requireOwnerOrAdmin(ctx, actor, doctorID); err != nil {
		return err
	}

	doctor, err := s.repo.GetByID(ctx, doctorID)
	if err != nil {
		return err
	}
	if doctor.PhotoURL == "" {
		return nil
	}

	if err := s.fileStorage.DeleteFile(ctx, doctor.PhotoURL); err != nil {
		s.logger.Warn("не удалось удалить фотографию", zap.Error(err))
	}
	return s.repo.UpdateProfilePhoto(ctx, doctorID, "")
}

func (s *DoctorServiceImpl) GetStats(ctx context.Context, actor domain.Actor, doctorID int64) (*domain.DoctorStats, error) {
	if err := s.requireOwnerOrAdmin(ctx, actor, doctorID); err != nil {
		return nil, err
	}
	return s.repo.GetStats(ctx, doctorID)
}

func (s *DoctorServiceImpl) GetAdminOverview(ctx context.Context, actor domain.Actor) (*domain.AdminOverview, error) {
	if actor.Role != domain.UserRoleAdmin {
		return nil, domain.ErrForbidden
	}
	return s.repo.GetAdminOverview(ctx)
}

func (s *DoctorServiceImpl) requireOwnerOrAdmin(ctx context.Context, actor domain.Actor, doctorID int64) error {
	if actor.Role == domain.UserRoleAdmin {
		return nil
	}
	if actor.Role != domain.UserRoleDoctor {
		return domain.ErrForbidden
	}

	doctor, err := s.repo.GetByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrDoctorNotFound) {
			return domain.ErrForbidden
		}
		return err
	}
	if doctor.ID != doctorID {
		return domain.ErrForbidden
	}
	return nil
}
