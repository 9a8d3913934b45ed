package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"medbook/internal/domain"
)

type bookingTestEnv struct {
	svc       *BookingServiceImpl
	bookings  *fakeBookingRepo
	doctors   *fakeDoctorRepo
	schedules *fakeScheduleRepo

	doctor  *domain.Doctor
	date    time.Time
	dateStr string

	patient     domain.Actor
	doctorActor domain.Actor
	admin       domain.Actor
}

// newBookingTestEnv собирает сервис с врачом, у которого есть правило
// расписания 09:00-12:00 по 30 минут на дату через неделю.
func newBookingTestEnv(t *testing.T, seed ...*domain.Booking) *bookingTestEnv {
	t.Helper()

	doctor := &domain.Doctor{
		ID:             1,
		UserID:         10,
		Specialization: "Кардиолог",
		TicketPrice:    500,
		ApprovalStatus: domain.DoctorApprovalApproved,
		IsActive:       true,
	}

	future := time.Now().AddDate(0, 0, 7)
	dateStr := future.Format("2006-01-02")
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		t.Fatalf("не удалось разобрать дату: %v", err)
	}

	schedules := newFakeScheduleRepo()
	schedules.templates[doctor.ID] = &domain.ScheduleTemplate{
		DoctorID: doctor.ID,
		WeeklyRules: []domain.WeeklyRule{{
			DoctorID:    doctor.ID,
			DayOfWeek:   date.Weekday().String(),
			StartTime:   "09:00",
			EndTime:     "12:00",
			SlotMinutes: 30,
		}},
	}

	bookings := newFakeBookingRepo(seed...)
	doctors := newFakeDoctorRepo(doctor)

	svc := NewBookingService(bookings, doctors, schedules, newFakeUserRepo(), zap.NewNop())

	return &bookingTestEnv{
		svc:         svc,
		bookings:    bookings,
		doctors:     doctors,
		schedules:   schedules,
		doctor:      doctor,
		date:        date,
		dateStr:     dateStr,
		patient:     domain.Actor{UserID: 100, Role: domain.UserRolePatient},
		doctorActor: domain.Actor{UserID: 10, Role: domain.UserRoleDoctor},
		admin:       domain.Actor{UserID: 1, Role: domain.UserRoleAdmin},
	}
}

func TestBookingCreate_Success(t *testing.T) {
	env := newBookingTestEnv(t)

	id, err := env.svc.Create(context.Background(), env.patient, domain.CreateBookingDTO{
		DoctorID:        env.doctor.ID,
		AppointmentDate: env.dateStr,
		AppointmentTime: "09:30",
	})
	if err != nil {
		t.Fatalf("не ожидалась ошибка: %v", err)
	}

	created := env.bookings.bookings[id]
	if created == nil {
		t.Fatal("запись не сохранена в репозитории")
	}
	if created.Status != domain.BookingStatusPending {
		t.Fatalf("ожидался статус pending, получен %s", created.Status)
	}
	if created.PatientID != env.patient.UserID {
		t.Fatalf("ожидался пациент %d, получен %d", env.patient.UserID, created.PatientID)
	}
	if created.TicketPrice != env.doctor.TicketPrice {
		t.Fatalf("ожидалась цена врача %v, получена %v", env.doctor.TicketPrice, created.TicketPrice)
	}
	if created.PaymentMethod != domain.PaymentMethodCash {
		t.Fatalf("ожидался способ оплаты cash, получен %s", created.PaymentMethod)
	}
}

func TestBookingCreate_NotPatient(t *testing.T) {
	env := newBookingTestEnv(t)

	_, err := env.svc.Create(context.Background(), env.doctorActor, domain.CreateBookingDTO{
		DoctorID:        env.doctor.ID,
		AppointmentDate: env.dateStr,
		AppointmentTime: "09:30",
	})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("ожидалась ErrForbidden, получено %v", err)
	}
}

func TestBookingCreate_DoctorNotBookable(t *testing.T) {
	env := newBookingTestEnv(t)
	env.doctor.ApprovalStatus = domain.DoctorApprovalPending

	_, err := env.svc.Create(context.Background(), env.patient, domain.CreateBookingDTO{
		DoctorID:        env.doctor.ID,
		AppointmentDate: env.dateStr,
		AppointmentTime: "09:30",
	})
	if !errors.Is(err, domain.ErrDoctorNotBookable) {
		t.Fatalf("ожидалась ErrDoctorNotBookable, получено %v", err)
	}
}

func TestBookingCreate_SlotConflict(t *testing.T) {
	env := newBookingTestEnv(t)

	_, err := env.svc.Create(context.Background(), env.patient, domain.CreateBookingDTO{
		DoctorID:        env.doctor.ID,
		AppointmentDate: env.dateStr,
		AppointmentTime: "09:30",
	})
	if err != nil {
		t.Fatalf("первая запись должна была пройти: %v", err)
	}

	other := domain.Actor{UserID: 101, Role: domain.UserRolePatient}
	_, err = env.svc.Create(context.Background(), other, domain.CreateBookingDTO{
		DoctorID:        env.doctor.ID,
		AppointmentDate: env.dateStr,
		AppointmentTime: "09:30",
	})
	if !errors.Is(err, domain.ErrSlotConflict) {
		t.Fatalf("ожидалась ErrSlotConflict, получено %v", err)
	}
}

func TestBookingCreate_ConcurrentSameSlot(t *testing.T) {
	env := newBookingTestEnv(t)

	const attempts = 16
	results := make(chan error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(patientID int64) {
			defer wg.Done()
			actor := domain.Actor{UserID: patientID, Role: domain.UserRolePatient}
			_, err := env.svc.Create(context.Background(), actor, domain.CreateBookingDTO{
				DoctorID:        env.doctor.ID,
				AppointmentDate: env.dateStr,
				AppointmentTime: "09:30",
			})
			results <- err
		}(int64(100 + i))
	}
	wg.Wait()
	close(results)

	var created, conflicts int
	for err := range results {
		switch {
		case err == nil:
			created++
		case errors.Is(err, domain.ErrSlotConflict):
			conflicts++
		default:
			t.Fatalf("неожиданная ошибка: %v", err)
		}
	}

	if created != 1 {
		t.Fatalf("слот должен достаться ровно одному пациенту, записей %d", created)
	}
	if conflicts != attempts-1 {
		t.Fatalf("остальные должны получить конфликт слота, конфликтов %d", conflicts)
	}
}

func TestBookingCreate_SlotOutsideGrid(t *testing.T) {
	env := newBookingTestEnv(t)

	// 12:00 — граница окончания рабочего окна, такого слота в сетке нет.
	_, err := env.svc.Create(context.Background(), env.patient, domain.CreateBookingDTO{
		DoctorID:        env.doctor.ID,
		AppointmentDate: env.dateStr,
		AppointmentTime: "12:00",
	})
	if !errors.Is(err, domain.ErrInvalidSlot) {
		t.Fatalf("ожидалась ErrInvalidSlot, получено %v", err)
	}
}

func TestBookingCreate_PastTime(t *testing.T) {
	env := newBookingTestEnv(t)
	yesterday := time.Now().AddDate(0, 0, -1).Format("2006-01-02")

	_, err := env.svc.Create(context.Background(), env.patient, domain.CreateBookingDTO{
		DoctorID:        env.doctor.ID,
		AppointmentDate: yesterday,
		AppointmentTime: "09:30",
	})
	if !errors.Is(err, domain.ErrInvalidSlot) {
		t.Fatalf("ожидалась ErrInvalidSlot, получено %v", err)
	}
}

func TestBookingCreate_BadDateFormat(t *testing.T) {
	env := newBookingTestEnv(t)

	_, err := env.svc.Create(context.Background(), env.patient, domain.CreateBookingDTO{
		DoctorID:        env.doctor.ID,
		AppointmentDate: "07.09.2026",
		AppointmentTime: "09:30",
	})
	if !errors.Is(err, domain.ErrInvalidSlot) {
		t.Fatalf("ожидалась ErrInvalidSlot, получено %v", err)
	}
}

func TestBookingReschedule_SameSlotNoop(t *testing.T) {
	env := newBookingTestEnv(t, &domain.Booking{
		ID:              1,
		DoctorID:        1,
		PatientID:       100,
		AppointmentDate: mustParseDate(t, "2026-09-07"),
		AppointmentTime: "09:30",
		Status:          domain.BookingStatusPending,
	})

	sameDate := "2026-09-07"
	sameTime := "09:30"
	err := env.svc.Reschedule(context.Background(), env.patient, 1, domain.RescheduleBookingDTO{
		AppointmentDate: &sameDate,
		AppointmentTime: &sameTime,
	})
	if err != nil {
		t.Fatalf("перенос на тот же слот должен быть успешным: %v", err)
	}
}

func TestBookingReschedule_DoctorForbidden(t *testing.T) {
	env := newBookingTestEnv(t, &domain.Booking{
		ID:              1,
		DoctorID:        1,
		PatientID:       100,
		AppointmentDate: mustParseDate(t, "2026-09-07"),
		AppointmentTime: "09:30",
		Status:          domain.BookingStatusPending,
	})

	newTime := "10:00"
	err := env.svc.Reschedule(context.Background(), env.doctorActor, 1, domain.RescheduleBookingDTO{
		AppointmentTime: &newTime,
	})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("ожидалась ErrForbidden, получено %v", err)
	}
}

func TestBookingReschedule_ToFreeSlot(t *testing.T) {
	env := newBookingTestEnv(t)
	env.bookings.bookings[1] = &domain.Booking{
		ID: 1, DoctorID: 1, PatientID: 100,
		AppointmentDate: env.date, AppointmentTime: "09:00",
		Status: domain.BookingStatusApproved,
	}
	env.bookings.nextID = 1

	newTime := "10:30"
	err := env.svc.Reschedule(context.Background(), env.patient, 1, domain.RescheduleBookingDTO{
		AppointmentTime: &newTime,
	})
	if err != nil {
		t.Fatalf("не ожидалась ошибка: %v", err)
	}
	if got := env.bookings.bookings[1].AppointmentTime; got != "10:30" {
		t.Fatalf("ожидалось время 10:30, получено %s", got)
	}
}

func TestBookingReschedule_OccupiedSlot(t *testing.T) {
	env := newBookingTestEnv(t)
	env.bookings.bookings[1] = &domain.Booking{
		ID: 1, DoctorID: 1, PatientID: 100,
		AppointmentDate: env.date, AppointmentTime: "09:00",
		Status: domain.BookingStatusPending,
	}
	env.bookings.bookings[2] = &domain.Booking{
		ID: 2, DoctorID: 1, PatientID: 101,
		AppointmentDate: env.date, AppointmentTime: "09:30",
		Status: domain.BookingStatusApproved,
	}
	env.bookings.nextID = 2

	newTime := "09:30"
	err := env.svc.Reschedule(context.Background(), env.patient, 1, domain.RescheduleBookingDTO{
		AppointmentTime: &newTime,
	})
	if !errors.Is(err, domain.ErrSlotConflict) {
		t.Fatalf("ожидалась ErrSlotConflict, получено %v", err)
	}
	if got := env.bookings.bookings[1].AppointmentTime; got != "09:00" {
		t.Fatalf("запись не должна была измениться, время %s", got)
	}
}

func TestBookingReschedule_TerminalState(t *testing.T) {
	env := newBookingTestEnv(t)
	env.bookings.bookings[1] = &domain.Booking{
		ID: 1, DoctorID: 1, PatientID: 100,
		AppointmentDate: env.date, AppointmentTime: "09:00",
		Status: domain.BookingStatusCancelled,
	}
	env.bookings.nextID = 1

	newTime := "10:00"
	err := env.svc.Reschedule(context.Background(), env.patient, 1, domain.RescheduleBookingDTO{
		AppointmentTime: &newTime,
	})
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("ожидалась ErrInvalidState, получено %v", err)
	}
}

func TestBookingCancel_RecordsInitiator(t *testing.T) {
	env := newBookingTestEnv(t)
	env.bookings.bookings[1] = &domain.Booking{
		ID: 1, DoctorID: 1, PatientID: 100,
		AppointmentDate: env.date, AppointmentTime: "09:00",
		Status: domain.BookingStatusPending,
	}
	env.bookings.nextID = 1

	err := env.svc.Cancel(context.Background(), env.patient, 1, domain.CancelBookingDTO{})
	if err != nil {
		t.Fatalf("не ожидалась ошибка: %v", err)
	}

	b := env.bookings.bookings[1]
	if b.Status != domain.BookingStatusCancelled {
		t.Fatalf("ожидался статус cancelled, получен %s", b.Status)
	}
	if b.CancelledBy == nil || *b.CancelledBy != domain.UserRolePatient {
		t.Fatalf("инициатор отмены не зафиксирован: %v", b.CancelledBy)
	}
	if b.CancellationReason == nil || *b.CancellationReason != defaultCancellationReason {
		t.Fatalf("ожидалась причина по умолчанию, получено %v", b.CancellationReason)
	}
}

func TestBookingCancel_TerminalState(t *testing.T) {
	env := newBookingTestEnv(t)
	env.bookings.bookings[1] = &domain.Booking{
		ID: 1, DoctorID: 1, PatientID: 100,
		AppointmentDate: env.date, AppointmentTime: "09:00",
		Status: domain.BookingStatusCompleted,
	}
	env.bookings.nextID = 1

	err := env.svc.Cancel(context.Background(), env.admin, 1, domain.CancelBookingDTO{Reason: "тест"})
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("ожидалась ErrInvalidState, получено %v", err)
	}
}

func TestBookingApprove_OwningDoctorOnly(t *testing.T) {
	env := newBookingTestEnv(t)
	env.bookings.bookings[1] = &domain.Booking{
		ID: 1, DoctorID: 1, PatientID: 100,
		AppointmentDate: env.date, AppointmentTime: "09:00",
		Status: domain.BookingStatusPending,
	}
	env.bookings.nextID = 1

	// Другой врач не подтверждает чужой прием.
	env.doctors.doctors[2] = &domain.Doctor{ID: 2, UserID: 20, ApprovalStatus: domain.DoctorApprovalApproved, IsActive: true}
	other := domain.Actor{UserID: 20, Role: domain.UserRoleDoctor}
	if err := env.svc.Approve(context.Background(), other, 1); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("ожидалась ErrForbidden, получено %v", err)
	}

	// Администратор тоже.
	if err := env.svc.Approve(context.Background(), env.admin, 1); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("ожидалась ErrForbidden для администратора, получено %v", err)
	}

	if err := env.svc.Approve(context.Background(), env.doctorActor, 1); err != nil {
		t.Fatalf("не ожидалась ошибка: %v", err)
	}
	if got := env.bookings.bookings[1].Status; got != domain.BookingStatusApproved {
		t.Fatalf("ожидался статус approved, получен %s", got)
	}
}

func TestBookingComplete_RecalculatesPatients(t *testing.T) {
	env := newBookingTestEnv(t)
	env.bookings.bookings[1] = &domain.Booking{
		ID: 1, DoctorID: 1, PatientID: 100,
		AppointmentDate: env.date, AppointmentTime: "09:00",
		Status: domain.BookingStatusApproved,
	}
	env.bookings.nextID = 1

	notes := &domain.VisitNotes{Diagnosis: "ОРВИ", DoctorNotes: "покой и обильное питье"}
	err := env.svc.Complete(context.Background(), env.doctorActor, 1, domain.CompleteBookingDTO{VisitNotes: notes})
	if err != nil {
		t.Fatalf("не ожидалась ошибка: %v", err)
	}

	b := env.bookings.bookings[1]
	if b.Status != domain.BookingStatusCompleted {
		t.Fatalf("ожидался статус completed, получен %s", b.Status)
	}
	if b.VisitNotes == nil || b.VisitNotes.Diagnosis != "ОРВИ" {
		t.Fatalf("заметки врача не сохранены: %+v", b.VisitNotes)
	}
	if env.doctors.recalcPatientsCalls != 1 {
		t.Fatalf("ожидался один пересчет пациентов, было %d", env.doctors.recalcPatientsCalls)
	}
}

func TestBookingComplete_AlreadyCancelled(t *testing.T) {
	env := newBookingTestEnv(t)
	env.bookings.bookings[1] = &domain.Booking{
		ID: 1, DoctorID: 1, PatientID: 100,
		AppointmentDate: env.date, AppointmentTime: "09:00",
		Status: domain.BookingStatusCancelled,
	}
	env.bookings.nextID = 1

	err := env.svc.Complete(context.Background(), env.doctorActor, 1, domain.CompleteBookingDTO{})
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("ожидалась ErrInvalidState, получено %v", err)
	}
}

func TestBookingList_RoleScoping(t *testing.T) {
	env := newBookingTestEnv(t)
	env.doctors.doctors[2] = &domain.Doctor{ID: 2, UserID: 20, ApprovalStatus: domain.DoctorApprovalApproved, IsActive: true}
	env.bookings.bookings[1] = &domain.Booking{ID: 1, DoctorID: 1, PatientID: 100, AppointmentDate: env.date, AppointmentTime: "09:00", Status: domain.BookingStatusPending}
	env.bookings.bookings[2] = &domain.Booking{ID: 2, DoctorID: 2, PatientID: 100, AppointmentDate: env.date, AppointmentTime: "09:00", Status: domain.BookingStatusPending}
	env.bookings.bookings[3] = &domain.Booking{ID: 3, DoctorID: 1, PatientID: 101, AppointmentDate: env.date, AppointmentTime: "09:30", Status: domain.BookingStatusApproved}
	env.bookings.nextID = 3

	ctx := context.Background()

	list, total, err := env.svc.List(ctx, env.patient, domain.BookingFilter{})
	if err != nil {
		t.Fatalf("не ожидалась ошибка: %v", err)
	}
	if total != 2 || len(list) != 2 {
		t.Fatalf("пациент должен видеть 2 свои записи, получено %d", total)
	}
	for _, b := range list {
		if b.PatientID != env.patient.UserID {
			t.Fatalf("пациенту видна чужая запись %d", b.ID)
		}
	}

	list, total, err = env.svc.List(ctx, env.doctorActor, domain.BookingFilter{})
	if err != nil {
		t.Fatalf("не ожидалась ошибка: %v", err)
	}
	if total != 2 || len(list) != 2 {
		t.Fatalf("врач должен видеть 2 записи своего приема, получено %d", total)
	}
	for _, b := range list {
		if b.DoctorID != 1 {
			t.Fatalf("врачу видна чужая запись %d", b.ID)
		}
	}

	_, total, err = env.svc.List(ctx, env.admin, domain.BookingFilter{})
	if err != nil {
		t.Fatalf("не ожидалась ошибка: %v", err)
	}
	if total != 3 {
		t.Fatalf("администратор должен видеть все 3 записи, получено %d", total)
	}
}

func mustParseDate(t *testing.T, s string) time.Time {
	t.Helper()
	date, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("не удалось разобрать дату %q: %v", s, err)
	}
	return date
}
