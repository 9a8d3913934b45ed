package service

import (
	"context"

	"go.uber.org/zap"

	"medbook/config"
	"medbook/internal/domain"
	"medbook/internal/repository"
	"medbook/internal/storage"
)

type Deps struct {
	Repos       *repository.Repositories
	Logger      *zap.Logger
	Config      *config.Config
	FileStorage storage.FileStorage
}

type Services struct {
	User     UserService
	Auth     AuthService
	Doctor   DoctorService
	Schedule ScheduleService
	Booking  BookingService
	Review   ReviewService
	Docs     DocsService
}

func NewServices(deps Deps) *Services {
	return &Services{
		User:     NewUserService(deps.Repos.User, deps.Logger),
		Auth:     NewAuthService(deps.Repos.Auth, deps.Repos.User, deps.Config.JWT, deps.Logger),
		Doctor:   NewDoctorService(deps.Repos.Doctor, deps.Repos.User, deps.FileStorage, deps.Logger),
		Schedule: NewScheduleService(deps.Repos.Schedule, deps.Repos.Doctor, deps.Repos.Booking, deps.Logger),
		Booking:  NewBookingService(deps.Repos.Booking, deps.Repos.Doctor, deps.Repos.Schedule, deps.Repos.User, deps.Logger),
		Review:   NewReviewService(deps.Repos.Review, deps.Repos.Doctor, deps.Repos.Booking, deps.Logger),
		Docs:     NewDocsService(deps.Repos.Booking, deps.Repos.Doctor, deps.Logger),
	}
}

type UserService interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	Update(ctx context.Context, actor domain.Actor, id int64, dto domain.UpdateUserDTO) error
	UpdatePassword(ctx context.Context, actor domain.Actor, id int64, dto domain.PasswordUpdateDTO) error
	List(ctx context.Context, limit, offset int) ([]domain.User, error)
}

type AuthService interface {
	Register(ctx context.Context, dto domain.RegisterRequest) (int64, error)
	Login(ctx context.Context, dto domain.LoginRequest, userAgent, ip string) (*domain.Tokens, error)
	RefreshTokens(ctx context.Context, refreshToken, userAgent, ip string) (*domain.Tokens, error)
	Logout(ctx context.Context, refreshToken string) error
	ParseToken(ctx context.Context, token string) (int64, domain.UserRole, error)
}

type DoctorService interface {
	Create(ctx context.Context, actor domain.Actor, dto domain.CreateDoctorDTO) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Doctor, error)
	GetByUserID(ctx context.Context, userID int64) (*domain.Doctor, error)
	Update(ctx context.Context, actor domain.Actor, id int64, dto domain.UpdateDoctorDTO) error
	List(ctx context.Context, filter domain.DoctorFilter) ([]domain.Doctor, int, error)
	SetApprovalStatus(ctx context.Context, actor domain.Actor, id int64, status domain.DoctorApprovalStatus) error
	UploadProfilePhoto(ctx context.Context, actor domain.Actor, doctorID int64, photo []byte, filename string) error
	DeleteProfilePhoto(ctx context.Context, actor domain.Actor, doctorID int64) error
	GetStats(ctx context.Context, actor domain.Actor, doctorID int64) (*domain.DoctorStats, error)
	GetAdminOverview(ctx context.Context, actor domain.Actor) (*domain.AdminOverview, error)
}

type ScheduleService interface {
	GetTemplate(ctx context.Context, doctorID int64) (*domain.ScheduleTemplate, error)
	ReplaceTemplate(ctx context.Context, actor domain.Actor, dto domain.ReplaceTemplateDTO) error
	UpsertWeeklyRule(ctx context.Context, actor domain.Actor, dto domain.WeeklyRuleDTO) (int64, error)
	DeleteWeeklyRule(ctx context.Context, actor domain.Actor, dayOfWeek string) error
	AddExceptionDate(ctx context.Context, actor domain.Actor, dto domain.ExceptionDateDTO) (int64, error)
	RemoveExceptionDate(ctx context.Context, actor domain.Actor, date string) error
	GetDaySlots(ctx context.Context, doctorID int64, date string) ([]domain.Slot, error)
}

type BookingService interface {
	Create(ctx context.Context, actor domain.Actor, dto domain.CreateBookingDTO) (int64, error)
	GetByID(ctx context.Context, actor domain.Actor, id int64) (*domain.Booking, error)
	Reschedule(ctx context.Context, actor domain.Actor, id int64, dto domain.RescheduleBookingDTO) error
	Cancel(ctx context.Context, actor domain.Actor, id int64, dto domain.CancelBookingDTO) error
	Approve(ctx context.Context, actor domain.Actor, id int64) error
	Complete(ctx context.Context, actor domain.Actor, id int64, dto domain.CompleteBookingDTO) error
	List(ctx context.Context, actor domain.Actor, filter domain.BookingFilter) ([]domain.Booking, int, error)
}

type ReviewService interface {
	Create(ctx context.Context, actor domain.Actor, dto domain.CreateReviewDTO) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Review, error)
	Update(ctx context.Context, actor domain.Actor, id int64, dto domain.UpdateReviewDTO) error
	Delete(ctx context.Context, actor domain.Actor, id int64) error
	List(ctx context.Context, filter domain.ReviewFilter) ([]domain.Review, int, error)
}

type DocsService interface {
	GenerateReceipt(ctx context.Context, actor domain.Actor, bookingID int64) ([]byte, string, error)
}
