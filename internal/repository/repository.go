package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"medbook/internal/domain"
)

type Repositories struct {
	User     UserRepository
	Auth     AuthRepository
	Doctor   DoctorRepository
	Schedule ScheduleRepository
	Booking  BookingRepository
	Review   ReviewRepository
}

func NewRepositories(db *pgxpool.Pool) *Repositories {
	return &Repositories{
		User:     NewUserRepository(db),
		Auth:     NewAuthRepository(db),
		Doctor:   NewDoctorRepository(db),
		Schedule: NewScheduleRepository(db),
		Booking:  NewBookingRepository(db),
		Review:   NewReviewRepository(db),
	}
}

type UserRepository interface {
	Create(ctx context.Context, user domain.CreateUserDTO) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
	Update(ctx context.Context, id int64, user domain.UpdateUserDTO) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	List(ctx context.Context, limit, offset int) ([]domain.User, error)
}

type AuthRepository interface {
	CreateSession(ctx context.Context, session domain.Session) error
	GetSessionByRefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteSessionsByUserID(ctx context.Context, userID int64) error
}

type DoctorRepository interface {
	Create(ctx context.Context, userID int64, dto domain.CreateDoctorDTO) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Doctor, error)
	GetByUserID(ctx context.Context, userID int64) (*domain.Doctor, error)
	Update(ctx context.Context, id int64, dto domain.UpdateDoctorDTO) error
	List(ctx context.Context, filter domain.DoctorFilter) ([]domain.Doctor, int, error)
	SetApprovalStatus(ctx context.Context, id int64, status domain.DoctorApprovalStatus) error
	UpdateProfilePhoto(ctx context.Context, id int64, photoURL string) error

	// Идемпотентные пересчеты агрегатов врача по фактическим данным.
	RecalculateRating(ctx context.Context, doctorID int64) error
	RecalculatePatients(ctx context.Context, doctorID int64) error

	GetStats(ctx context.Context, doctorID int64) (*domain.DoctorStats, error)
	GetAdminOverview(ctx context.Context) (*domain.AdminOverview, error)
}

type ScheduleRepository interface {
	GetTemplate(ctx context.Context, doctorID int64) (*domain.ScheduleTemplate, error)
	ReplaceTemplate(ctx context.Context, doctorID int64, rules []domain.WeeklyRule, exceptions []domain.ExceptionDate) error
	UpsertWeeklyRule(ctx context.Context, rule domain.WeeklyRule) (int64, error)
	DeleteWeeklyRule(ctx context.Context, doctorID int64, dayOfWeek string) error
	AddExceptionDate(ctx context.Context, exception domain.ExceptionDate) (int64, error)
	RemoveExceptionDate(ctx context.Context, doctorID int64, date time.Time) error
}

type BookingRepository interface {
	Create(ctx context.Context, booking domain.Booking) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	Reschedule(ctx context.Context, id int64, date time.Time, timeStr string) error
	Approve(ctx context.Context, id int64) error
	Cancel(ctx context.Context, id int64, byRole domain.UserRole, reason string) error
	Complete(ctx context.Context, id int64, notes *domain.VisitNotes) error
	List(ctx context.Context, filter domain.BookingFilter) ([]domain.Booking, error)
	CountByFilter(ctx context.Context, filter domain.BookingFilter) (int, error)
	// GetBookedTimes возвращает времена активных записей врача на дату.
	// excludeID исключает переносимую запись из проверки конфликтов.
	GetBookedTimes(ctx context.Context, doctorID int64, date time.Time, excludeID *int64) ([]string, error)
}

type ReviewRepository interface {
	Create(ctx context.Context, patientID int64, dto domain.CreateReviewDTO) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Review, error)
	GetByBookingID(ctx context.Context, bookingID int64) (*domain.Review, error)
	Update(ctx context.Context, id int64, dto domain.UpdateReviewDTO) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter domain.ReviewFilter) ([]domain.Review, error)
	CountByFilter(ctx context.Context, filter domain.ReviewFilter) (int, error)
}
