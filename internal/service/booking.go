package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"medbook/internal/domain"
	"medbook/internal/repository"
)

const defaultCancellationReason = "причина не указана"

type BookingServiceImpl struct {
	bookingRepo  repository.BookingRepository
	doctorRepo   repository.DoctorRepository
	scheduleRepo repository.ScheduleRepository
	userRepo     repository.UserRepository
	logger       *zap.Logger
}

func NewBookingService(
	bookingRepo repository.BookingRepository,
	doctorRepo repository.DoctorRepository,
	scheduleRepo repository.ScheduleRepository,
	userRepo repository.UserRepository,
	logger *zap.Logger,
) *BookingServiceImpl {
	return &BookingServiceImpl{
		bookingRepo:  bookingRepo,
		doctorRepo:   doctorRepo,
		scheduleRepo: scheduleRepo,
		userRepo:     userRepo,
		logger:       logger,
	}
}

// Create создает запись на прием в статусе pending. Слот проверяется
// по сетке расписания, финальную защиту от двойного бронирования дает
// уникальный индекс в репозитории.
func (s *BookingServiceImpl) Create(ctx context.Context, actor domain.Actor, dto domain.CreateBookingDTO) (int64, error) {
	if actor.Role != domain.UserRolePatient {
		return 0, domain.ErrForbidden
	}

	doctor, err := s.doctorRepo.GetByID(ctx, dto.DoctorID)
	if err != nil {
		return 0, err
	}
	if !doctor.Bookable() {
		return 0, domain.ErrDoctorNotBookable
	}

	date, timeStr, err := s.validateSlotRequest(ctx, doctor.ID, dto.AppointmentDate, dto.AppointmentTime, nil)
	if err != nil {
		return 0, err
	}

	price := doctor.TicketPrice
	if dto.TicketPrice != nil {
		price = *dto.TicketPrice
	}
	paymentMethod := domain.PaymentMethodCash
	if dto.PaymentMethod != nil {
		paymentMethod = *dto.PaymentMethod
	}

	id, err := s.bookingRepo.Create(ctx, domain.Booking{
		DoctorID:        doctor.ID,
		PatientID:       actor.UserID,
		AppointmentDate: date,
		AppointmentTime: timeStr,
		Status:          domain.BookingStatusPending,
		TicketPrice:     price,
		PaymentMethod:   paymentMethod,
	})
	if err != nil {
		if errors.Is(err, domain.ErrSlotConflict) {
			return 0, err
		}
		s.logger.Error("ошибка создания записи на прием",
			zap.Int64("doctor_id", doctor.ID),
			zap.Int64("patient_id", actor.UserID),
			zap.Error(err))
		return 0, err
	}

	s.logger.Info("создана запись на прием",
		zap.Int64("booking_id", id),
		zap.Int64("doctor_id", doctor.ID),
		zap.Int64("patient_id", actor.UserID),
		zap.String("date", dto.AppointmentDate),
		zap.String("time", timeStr))
	return id, nil
}

func (s *BookingServiceImpl) GetByID(ctx context.Context, actor domain.Actor, id int64) (*domain.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkAccess(ctx, actor, booking); err != nil {
		return nil, err
	}
	return booking, nil
}

// Reschedule переносит активную запись на другой слот. Перенос на тот же
// слот считается успешным и ничего не меняет. Врач запись не переносит:
// он может только отменить ее, освободив слот пациенту.
func (s *BookingServiceImpl) Reschedule(ctx context.Context, actor domain.Actor, id int64, dto domain.RescheduleBookingDTO) error {
	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	switch actor.Role {
	case domain.UserRolePatient:
		if booking.PatientID != actor.UserID {
			return domain.ErrForbidden
		}
	case domain.UserRoleAdmin:
	default:
		return domain.ErrForbidden
	}

	if !booking.Status.IsActive() {
		return domain.ErrInvalidState
	}

	newDate := booking.AppointmentDate.Format(dateLayout)
	if dto.AppointmentDate != nil {
		newDate = *dto.AppointmentDate
	}
	newTime := booking.AppointmentTime
	if dto.AppointmentTime != nil {
		newTime = *dto.AppointmentTime
	}

	if newDate == booking.AppointmentDate.Format(dateLayout) && newTime == booking.AppointmentTime {
		return nil
	}

	date, timeStr, err := s.validateSlotRequest(ctx, booking.DoctorID, newDate, newTime, &booking.ID)
	if err != nil {
		return err
	}

	if err := s.bookingRepo.Reschedule(ctx, id, date, timeStr); err != nil {
		return err
	}

	s.logger.Info("запись на прием перенесена",
		zap.Int64("booking_id", id),
		zap.String("date", newDate),
		zap.String("time", timeStr))
	return nil
}

// Cancel отменяет активную запись. Инициатор фиксируется в самой записи,
// чтобы было видно, кто освободил слот.
func (s *BookingServiceImpl) Cancel(ctx context.Context, actor domain.Actor, id int64, dto domain.CancelBookingDTO) error {
	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.checkAccess(ctx, actor, booking); err != nil {
		return err
	}
	if !booking.Status.CanTransitionTo(domain.BookingStatusCancelled) {
		return domain.ErrInvalidState
	}

	reason := dto.Reason
	if reason == "" {
		reason = defaultCancellationReason
	}

	if err := s.bookingRepo.Cancel(ctx, id, actor.Role, reason); err != nil {
		return err
	}

	s.logger.Info("запись на прием отменена",
		zap.Int64("booking_id", id),
		zap.String("cancelled_by", string(actor.Role)))
	return nil
}

// Approve подтверждает запись. Подтверждает только врач, которому она
// принадлежит: администратор не распоряжается чужим приемом.
func (s *BookingServiceImpl) Approve(ctx context.Context, actor domain.Actor, id int64) error {
	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.requireOwningDoctor(ctx, actor, booking); err != nil {
		return err
	}
	if !booking.Status.CanTransitionTo(domain.BookingStatusApproved) {
		return domain.ErrInvalidState
	}

	if err := s.bookingRepo.Approve(ctx, id); err != nil {
		return err
	}

	s.logger.Info("запись на прием подтверждена", zap.Int64("booking_id", id))
	return nil
}

// Complete закрывает прием и сохраняет заметки врача. После завершения
// счетчик пациентов врача пересчитывается по фактическим данным, так что
// повторный пересчет ничего не ломает.
func (s *BookingServiceImpl) Complete(ctx context.Context, actor domain.Actor, id int64, dto domain.CompleteBookingDTO) error {
	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.requireOwningDoctor(ctx, actor, booking); err != nil {
		return err
	}
	if !booking.Status.CanTransitionTo(domain.BookingStatusCompleted) {
		return domain.ErrInvalidState
	}

	if err := s.bookingRepo.Complete(ctx, id, dto.VisitNotes); err != nil {
		return err
	}

	if err := s.doctorRepo.RecalculatePatients(ctx, booking.DoctorID); err != nil {
		s.logger.Error("ошибка пересчета пациентов врача",
			zap.Int64("doctor_id", booking.DoctorID),
			zap.Error(err))
	}

	s.logger.Info("прием завершен", zap.Int64("booking_id", id))
	return nil
}

// List возвращает записи в пределах видимости инициатора: пациент видит
// свои, врач свои, администратор любые.
func (s *BookingServiceImpl) List(ctx context.Context, actor domain.Actor, filter domain.BookingFilter) ([]domain.Booking, int, error) {
	switch actor.Role {
	case domain.UserRolePatient:
		filter.PatientID = &actor.UserID
	case domain.UserRoleDoctor:
		doctor, err := s.doctorRepo.GetByUserID(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, domain.ErrDoctorNotFound) {
				return nil, 0, domain.ErrForbidden
			}
			return nil, 0, err
		}
		filter.DoctorID = &doctor.ID
	case domain.UserRoleAdmin:
	default:
		return nil, 0, domain.ErrForbidden
	}

	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}

	bookings, err := s.bookingRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.bookingRepo.CountByFilter(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

// validateSlotRequest разбирает дату и время, отсекает прошлое и сверяет
// слот с сеткой расписания врача на эту дату.
func (s *BookingServiceImpl) validateSlotRequest(ctx context.Context, doctorID int64, dateStr, timeStr string, excludeID *int64) (time.Time, string, error) {
	date, err := time.Parse(dateLayout, dateStr)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: неверный формат даты %q", domain.ErrInvalidSlot, dateStr)
	}
	slotTime, err := time.Parse(timeLayout, timeStr)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: неверный формат времени %q", domain.ErrInvalidSlot, timeStr)
	}
	normalized := slotTime.Format(timeLayout)

	startsAt := time.Date(date.Year(), date.Month(), date.Day(),
		slotTime.Hour(), slotTime.Minute(), 0, 0, time.Local)
	if !startsAt.After(time.Now()) {
		return time.Time{}, "", fmt.Errorf("%w: время приема уже прошло", domain.ErrInvalidSlot)
	}

	template, err := s.scheduleRepo.GetTemplate(ctx, doctorID)
	if err != nil {
		return time.Time{}, "", err
	}
	booked, err := s.bookingRepo.GetBookedTimes(ctx, doctorID, date, excludeID)
	if err != nil {
		return time.Time{}, "", err
	}

	for _, slot := range generateDaySlots(template, date, booked) {
		if slot.Time != normalized {
			continue
		}
		if !slot.Available {
			return time.Time{}, "", domain.ErrSlotConflict
		}
		return date, normalized, nil
	}
	return time.Time{}, "", fmt.Errorf("%w: слот %s отсутствует в расписании врача", domain.ErrInvalidSlot, normalized)
}

// checkAccess пропускает пациента записи, ее врача и администратора.
func (s *BookingServiceImpl) checkAccess(ctx context.Context, actor domain.Actor, booking *domain.Booking) error {
	switch actor.Role {
	case domain.UserRoleAdmin:
		return nil
	case domain.UserRolePatient:
		if booking.PatientID == actor.UserID {
			return nil
		}
	case domain.UserRoleDoctor:
		doctor, err := s.doctorRepo.GetByUserID(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, domain.ErrDoctorNotFound) {
				return domain.ErrForbidden
			}
			return err
		}
		if booking.DoctorID == doctor.ID {
			return nil
		}
	}
	return domain.ErrForbidden
}

func (s *BookingServiceImpl) requireOwningDoctor(ctx context.Context, actor domain.Actor, booking *domain.Booking) error {
	if actor.Role != domain.UserRoleDoctor {
		return domain.ErrForbidden
	}
	doctor, err := s.doctorRepo.GetByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrDoctorNotFound) {
			return domain.ErrForbidden
		}
		return err
	}
	if booking.DoctorID != doctor.ID {
		return domain.ErrForbidden
	}
	return nil
}
