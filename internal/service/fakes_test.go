package service

import (
	"context"
	"sync"
	"time"

	"medbook/internal/domain"
)

// Фейковые репозитории держат состояние в памяти и воспроизводят
// контракт постгресового слоя: конфликт активного слота, переходы
// статусов только из активных состояний.

type fakeDoctorRepo struct {
	doctors             map[int64]*domain.Doctor
	recalcRatingCalls   int
	recalcPatientsCalls int
}

func newFakeDoctorRepo(doctors ...*domain.Doctor) *fakeDoctorRepo {
	m := make(map[int64]*domain.Doctor)
	for _, d := range doctors {
		m[d.ID] = d
	}
	return &fakeDoctorRepo{doctors: m}
}

func (f *fakeDoctorRepo) Create(ctx context.Context, userID int64, dto domain.CreateDoctorDTO) (int64, error) {
	id := int64(len(f.doctors) + 1)
	f.doctors[id] = &domain.Doctor{
		ID:             id,
		UserID:         userID,
		Specialization: dto.Specialization,
		ApprovalStatus: domain.DoctorApprovalPending,
		IsActive:       true,
	}
	return id, nil
}

func (f *fakeDoctorRepo) GetByID(ctx context.Context, id int64) (*domain.Doctor, error) {
	d, ok := f.doctors[id]
	if !ok {
		return nil, domain.ErrDoctorNotFound
	}
	return d, nil
}

func (f *fakeDoctorRepo) GetByUserID(ctx context.Context, userID int64) (*domain.Doctor, error) {
	for _, d := range f.doctors {
		if d.UserID == userID {
			return d, nil
		}
	}
	return nil, domain.ErrDoctorNotFound
}

func (f *fakeDoctorRepo) Update(ctx context.Context, id int64, dto domain.UpdateDoctorDTO) error {
	if _, ok := f.doctors[id]; !ok {
		return domain.ErrDoctorNotFound
	}
	return nil
}

func (f *fakeDoctorRepo) List(ctx context.Context, filter domain.DoctorFilter) ([]domain.Doctor, int, error) {
	out := make([]domain.Doctor, 0, len(f.doctors))
	for _, d := range f.doctors {
		if filter.ApprovalStatus != nil && d.ApprovalStatus != *filter.ApprovalStatus {
			continue
		}
		out = append(out, *d)
	}
	return out, len(out), nil
}

func (f *fakeDoctorRepo) SetApprovalStatus(ctx context.Context, id int64, status domain.DoctorApprovalStatus) error {
	d, ok := f.doctors[id]
	if !ok {
		return domain.ErrDoctorNotFound
	}
	d.ApprovalStatus = status
	return nil
}

func (f *fakeDoctorRepo) UpdateProfilePhoto(ctx context.Context, id int64, photoURL string) error {
	return nil
}

func (f *fakeDoctorRepo) RecalculateRating(ctx context.Context, doctorID int64) error {
	f.recalcRatingCalls++
	return nil
}

func (f *fakeDoctorRepo) RecalculatePatients(ctx context.Context, doctorID int64) error {
	f.recalcPatientsCalls++
	return nil
}

func (f *fakeDoctorRepo) GetStats(ctx context.Context, doctorID int64) (*domain.DoctorStats, error) {
	return &domain.DoctorStats{}, nil
}

func (f *fakeDoctorRepo) GetAdminOverview(ctx context.Context) (*domain.AdminOverview, error) {
	return &domain.AdminOverview{}, nil
}

type fakeScheduleRepo struct {
	templates map[int64]*domain.ScheduleTemplate
}

func newFakeScheduleRepo() *fakeScheduleRepo {
	return &fakeScheduleRepo{templates: make(map[int64]*domain.ScheduleTemplate)}
}

func (f *fakeScheduleRepo) GetTemplate(ctx context.Context, doctorID int64) (*domain.ScheduleTemplate, error) {
	if t, ok := f.templates[doctorID]; ok {
		return t, nil
	}
	return &domain.ScheduleTemplate{DoctorID: doctorID}, nil
}

func (f *fakeScheduleRepo) ReplaceTemplate(ctx context.Context, doctorID int64, rules []domain.WeeklyRule, exceptions []domain.ExceptionDate) error {
	f.templates[doctorID] = &domain.ScheduleTemplate{
		DoctorID:       doctorID,
		WeeklyRules:    rules,
		ExceptionDates: exceptions,
	}
	return nil
}

func (f *fakeScheduleRepo) UpsertWeeklyRule(ctx context.Context, rule domain.WeeklyRule) (int64, error) {
	t, ok := f.templates[rule.DoctorID]
	if !ok {
		t = &domain.ScheduleTemplate{DoctorID: rule.DoctorID}
		f.templates[rule.DoctorID] = t
	}
	for i := range t.WeeklyRules {
		if t.WeeklyRules[i].DayOfWeek == rule.DayOfWeek {
			t.WeeklyRules[i] = rule
			return t.WeeklyRules[i].ID, nil
		}
	}
	rule.ID = int64(len(t.WeeklyRules) + 1)
	t.WeeklyRules = append(t.WeeklyRules, rule)
	return rule.ID, nil
}

func (f *fakeScheduleRepo) DeleteWeeklyRule(ctx context.Context, doctorID int64, dayOfWeek string) error {
	t, ok := f.templates[doctorID]
	if !ok {
		return domain.ErrNotFound
	}
	for i := range t.WeeklyRules {
		if t.WeeklyRules[i].DayOfWeek == dayOfWeek {
			t.WeeklyRules = append(t.WeeklyRules[:i], t.WeeklyRules[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeScheduleRepo) AddExceptionDate(ctx context.Context, exception domain.ExceptionDate) (int64, error) {
	t, ok := f.templates[exception.DoctorID]
	if !ok {
		t = &domain.ScheduleTemplate{DoctorID: exception.DoctorID}
		f.templates[exception.DoctorID] = t
	}
	exception.ID = int64(len(t.ExceptionDates) + 1)
	t.ExceptionDates = append(t.ExceptionDates, exception)
	return exception.ID, nil
}

func (f *fakeScheduleRepo) RemoveExceptionDate(ctx context.Context, doctorID int64, date time.Time) error {
	t, ok := f.templates[doctorID]
	if !ok {
		return domain.ErrNotFound
	}
	for i := range t.ExceptionDates {
		if t.ExceptionDates[i].Date.Equal(date) {
			t.ExceptionDates = append(t.ExceptionDates[:i], t.ExceptionDates[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

// fakeBookingRepo сериализует доступ мьютексом так же, как уникальный
// индекс сериализует конкурентные вставки в базе.
type fakeBookingRepo struct {
	mu       sync.Mutex
	bookings map[int64]*domain.Booking
	nextID   int64
}

func newFakeBookingRepo(bookings ...*domain.Booking) *fakeBookingRepo {
	m := make(map[int64]*domain.Booking)
	var maxID int64
	for _, b := range bookings {
		m[b.ID] = b
		if b.ID > maxID {
			maxID = b.ID
		}
	}
	return &fakeBookingRepo{bookings: m, nextID: maxID}
}

func (f *fakeBookingRepo) slotTaken(doctorID int64, date time.Time, timeStr string, excludeID *int64) bool {
	for _, b := range f.bookings {
		if excludeID != nil && b.ID == *excludeID {
			continue
		}
		if b.DoctorID == doctorID && b.Status.IsActive() &&
			b.AppointmentDate.Equal(date) && b.AppointmentTime == timeStr {
			return true
		}
	}
	return false
}

func (f *fakeBookingRepo) Create(ctx context.Context, booking domain.Booking) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.slotTaken(booking.DoctorID, booking.AppointmentDate, booking.AppointmentTime, nil) {
		return 0, domain.ErrSlotConflict
	}
	f.nextID++
	booking.ID = f.nextID
	booking.Status = domain.BookingStatusPending
	f.bookings[booking.ID] = &booking
	return booking.ID, nil
}

func (f *fakeBookingRepo) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, ok := f.bookings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *b
	return &copied, nil
}

func (f *fakeBookingRepo) Reschedule(ctx context.Context, id int64, date time.Time, timeStr string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, ok := f.bookings[id]
	if !ok {
		return domain.ErrNotFound
	}
	if f.slotTaken(b.DoctorID, date, timeStr, &id) {
		return domain.ErrSlotConflict
	}
	if !b.Status.IsActive() {
		return domain.ErrInvalidState
	}
	b.AppointmentDate = date
	b.AppointmentTime = timeStr
	return nil
}

func (f *fakeBookingRepo) Approve(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, ok := f.bookings[id]
	if !ok || b.Status != domain.BookingStatusPending {
		return domain.ErrInvalidState
	}
	b.Status = domain.BookingStatusApproved
	return nil
}

func (f *fakeBookingRepo) Cancel(ctx context.Context, id int64, byRole domain.UserRole, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, ok := f.bookings[id]
	if !ok || !b.Status.IsActive() {
		return domain.ErrInvalidState
	}
	now := time.Now()
	b.Status = domain.BookingStatusCancelled
	b.CancelledBy = &byRole
	b.CancellationReason = &reason
	b.CancelledAt = &now
	return nil
}

func (f *fakeBookingRepo) Complete(ctx context.Context, id int64, notes *domain.VisitNotes) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, ok := f.bookings[id]
	if !ok || !b.Status.IsActive() {
		return domain.ErrInvalidState
	}
	b.Status = domain.BookingStatusCompleted
	if notes != nil {
		b.VisitNotes = notes
	}
	return nil
}

func (f *fakeBookingRepo) List(ctx context.Context, filter domain.BookingFilter) ([]domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]domain.Booking, 0)
	for _, b := range f.bookings {
		if filter.DoctorID != nil && b.DoctorID != *filter.DoctorID {
			continue
		}
		if filter.PatientID != nil && b.PatientID != *filter.PatientID {
			continue
		}
		if filter.Status != nil && b.Status != *filter.Status {
			continue
		}
		out = append(out, *b)
	}
	return out, nil
}

func (f *fakeBookingRepo) CountByFilter(ctx context.Context, filter domain.BookingFilter) (int, error) {
	list, err := f.List(ctx, filter)
	if err != nil {
		return 0, err
	}
	return len(list), nil
}

func (f *fakeBookingRepo) GetBookedTimes(ctx context.Context, doctorID int64, date time.Time, excludeID *int64) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	times := make([]string, 0)
	for _, b := range f.bookings {
		if excludeID != nil && b.ID == *excludeID {
			continue
		}
		if b.DoctorID == doctorID && b.Status.IsActive() && b.AppointmentDate.Equal(date) {
			times = append(times, b.AppointmentTime)
		}
	}
	return times, nil
}

type fakeUserRepo struct {
	users map[int64]*domain.User
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	m := make(map[int64]*domain.User)
	for _, u := range users {
		m[u.ID] = u
	}
	return &fakeUserRepo{users: m}
}

func (f *fakeUserRepo) Create(ctx context.Context, dto domain.CreateUserDTO) (int64, error) {
	id := int64(len(f.users) + 1)
	f.users[id] = &domain.User{ID: id, Name: dto.Name, Email: dto.Email, Phone: dto.Phone, Role: dto.Role, IsActive: true}
	return id, nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUserRepo) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	for _, u := range f.users {
		if u.Phone == phone {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUserRepo) Update(ctx context.Context, id int64, dto domain.UpdateUserDTO) error {
	if _, ok := f.users[id]; !ok {
		return domain.ErrNotFound
	}
	return nil
}

func (f *fakeUserRepo) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	u, ok := f.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (f *fakeUserRepo) List(ctx context.Context, limit, offset int) ([]domain.User, error) {
	out := make([]domain.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, nil
}

type fakeReviewRepo struct {
	reviews map[int64]*domain.Review
	nextID  int64
}

func newFakeReviewRepo(reviews ...*domain.Review) *fakeReviewRepo {
	m := make(map[int64]*domain.Review)
	var maxID int64
	for _, r := range reviews {
		m[r.ID] = r
		if r.ID > maxID {
			maxID = r.ID
		}
	}
	return &fakeReviewRepo{reviews: m, nextID: maxID}
}

func (f *fakeReviewRepo) Create(ctx context.Context, patientID int64, dto domain.CreateReviewDTO) (int64, error) {
	f.nextID++
	f.reviews[f.nextID] = &domain.Review{
		ID:         f.nextID,
		DoctorID:   dto.DoctorID,
		PatientID:  patientID,
		BookingID:  dto.BookingID,
		Rating:     dto.Rating,
		ReviewText: dto.ReviewText,
	}
	return f.nextID, nil
}

func (f *fakeReviewRepo) GetByID(ctx context.Context, id int64) (*domain.Review, error) {
	r, ok := f.reviews[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r, nil
}

func (f *fakeReviewRepo) GetByBookingID(ctx context.Context, bookingID int64) (*domain.Review, error) {
	for _, r := range f.reviews {
		if r.BookingID == bookingID {
			return r, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeReviewRepo) Update(ctx context.Context, id int64, dto domain.UpdateReviewDTO) error {
	r, ok := f.reviews[id]
	if !ok {
		return domain.ErrNotFound
	}
	if dto.Rating != nil {
		r.Rating = *dto.Rating
	}
	if dto.ReviewText != nil {
		r.ReviewText = *dto.ReviewText
	}
	return nil
}

func (f *fakeReviewRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := f.reviews[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.reviews, id)
	return nil
}

func (f *fakeReviewRepo) List(ctx context.Context, filter domain.ReviewFilter) ([]domain.Review, error) {
	out := make([]domain.Review, 0)
	for _, r := range f.reviews {
		if filter.DoctorID != nil && r.DoctorID != *filter.DoctorID {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeReviewRepo) CountByFilter(ctx context.Context, filter domain.ReviewFilter) (int, error) {
	list, err := f.List(ctx, filter)
	if err != nil {
		return 0, err
	}
	return len(list), nil
}
