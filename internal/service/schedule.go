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

const (
	minSlotMinutes = 10
	maxSlotMinutes = 120

	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

type ScheduleServiceImpl struct {
	scheduleRepo repository.ScheduleRepository
	doctorRepo   repository.DoctorRepository
	bookingRepo  repository.BookingRepository
	logger       *zap.Logger
}

func NewScheduleService(
	scheduleRepo repository.ScheduleRepository,
	doctorRepo repository.DoctorRepository,
	bookingRepo repository.BookingRepository,
	logger *zap.Logger,
) *ScheduleServiceImpl {
	return &ScheduleServiceImpl{
		scheduleRepo: scheduleRepo,
		doctorRepo:   doctorRepo,
		bookingRepo:  bookingRepo,
		logger:       logger,
	}
}

func (s *ScheduleServiceImpl) GetTemplate(ctx context.Context, doctorID int64) (*domain.ScheduleTemplate, error) {
	if _, err := s.doctorRepo.GetByID(ctx, doctorID); err != nil {
		return nil, err
	}
	return s.scheduleRepo.GetTemplate(ctx, doctorID)
}

func (s *ScheduleServiceImpl) ReplaceTemplate(ctx context.Context, actor domain.Actor, dto domain.ReplaceTemplateDTO) error {
	doctor, err := s.actorDoctor(ctx, actor)
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(dto.WeeklyRules))
	rules := make([]domain.WeeklyRule, 0, len(dto.WeeklyRules))
	for _, r := range dto.WeeklyRules {
		rule, err := s.ruleFromDTO(doctor.ID, r)
		if err != nil {
			return err
		}
		if seen[rule.DayOfWeek] {
			return fmt.Errorf("%w: повторяющийся день недели %s", domain.ErrInvalidSlot, rule.DayOfWeek)
		}
		seen[rule.DayOfWeek] = true
		rules = append(rules, rule)
	}

	exceptions := make([]domain.ExceptionDate, 0, len(dto.ExceptionDates))
	for _, e := range dto.ExceptionDates {
		date, err := time.Parse(dateLayout, e.Date)
		if err != nil {
			return fmt.Errorf("%w: неверный формат даты %q", domain.ErrInvalidSlot, e.Date)
		}
		exceptions = append(exceptions, domain.ExceptionDate{
			DoctorID: doctor.ID,
			Date:     date,
			Reason:   e.Reason,
		})
	}

	if err := s.scheduleRepo.ReplaceTemplate(ctx, doctor.ID, rules, exceptions); err != nil {
		s.logger.Error("ошибка замены шаблона расписания",
			zap.Int64("doctor_id", doctor.ID),
			zap.Error(err))
		return err
	}

	s.logger.Info("шаблон расписания заменен",
		zap.Int64("doctor_id", doctor.ID),
		zap.Int("rules", len(rules)),
		zap.Int("exceptions", len(exceptions)))
	return nil
}

func (s *ScheduleServiceImpl) UpsertWeeklyRule(ctx context.Context, actor domain.Actor, dto domain.WeeklyRuleDTO) (int64, error) {
	doctor, err := s.actorDoctor(ctx, actor)
	if err != nil {
		return 0, err
	}

	rule, err := s.ruleFromDTO(doctor.ID, dto)
	if err != nil {
		return 0, err
	}

	id, err := s.scheduleRepo.UpsertWeeklyRule(ctx, rule)
	if err != nil {
		s.logger.Error("ошибка сохранения правила расписания",
			zap.Int64("doctor_id", doctor.ID),
			zap.String("day_of_week", rule.DayOfWeek),
			zap.Error(err))
		return 0, err
	}
	return id, nil
}

func (s *ScheduleServiceImpl) DeleteWeeklyRule(ctx context.Context, actor domain.Actor, dayOfWeek string) error {
	doctor, err := s.actorDoctor(ctx, actor)
	if err != nil {
		return err
	}
	if !validWeekday(dayOfWeek) {
		return fmt.Errorf("%w: неизвестный день недели %q", domain.ErrInvalidSlot, dayOfWeek)
	}
	return s.scheduleRepo.DeleteWeeklyRule(ctx, doctor.ID, dayOfWeek)
}

func (s *ScheduleServiceImpl) AddExceptionDate(ctx context.Context, actor domain.Actor, dto domain.ExceptionDateDTO) (int64, error) {
	doctor, err := s.actorDoctor(ctx, actor)
	if err != nil {
		return 0, err
	}

	date, err := time.Parse(dateLayout, dto.Date)
	if err != nil {
		return 0, fmt.Errorf("%w: неверный формат даты %q", domain.ErrInvalidSlot, dto.Date)
	}

	return s.scheduleRepo.AddExceptionDate(ctx, domain.ExceptionDate{
		DoctorID: doctor.ID,
		Date:     date,
		Reason:   dto.Reason,
	})
}

func (s *ScheduleServiceImpl) RemoveExceptionDate(ctx context.Context, actor domain.Actor, dateStr string) error {
	doctor, err := s.actorDoctor(ctx, actor)
	if err != nil {
		return err
	}

	date, err := time.Parse(dateLayout, dateStr)
	if err != nil {
		return fmt.Errorf("%w: неверный формат даты %q", domain.ErrInvalidSlot, dateStr)
	}
	return s.scheduleRepo.RemoveExceptionDate(ctx, doctor.ID, date)
}

// GetDaySlots возвращает сетку слотов врача на дату вместе с признаком
// занятости. Сетка каждый раз вычисляется заново из шаблона и активных
// записей, поэтому никакой рассинхронизации с расписанием быть не может.
func (s *ScheduleServiceImpl) GetDaySlots(ctx context.Context, doctorID int64, dateStr string) ([]domain.Slot, error) {
	if _, err := s.doctorRepo.GetByID(ctx, doctorID); err != nil {
		return nil, err
	}

	date, err := time.Parse(dateLayout, dateStr)
	if err != nil {
		return nil, fmt.Errorf("%w: неверный формат даты %q", domain.ErrInvalidSlot, dateStr)
	}

	template, err := s.scheduleRepo.GetTemplate(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	booked, err := s.bookingRepo.GetBookedTimes(ctx, doctorID, date, nil)
	if err != nil {
		return nil, err
	}

	return generateDaySlots(template, date, booked), nil
}

// actorDoctor находит профиль врача, от имени которого действует
// инициатор. Администратор расписаниями не управляет: у него нет
// собственного профиля врача.
func (s *ScheduleServiceImpl) actorDoctor(ctx context.Context, actor domain.Actor) (*domain.Doctor, error) {
	if actor.Role != domain.UserRoleDoctor {
		return nil, domain.ErrForbidden
	}
	doctor, err := s.doctorRepo.GetByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrDoctorNotFound) {
			return nil, domain.ErrForbidden
		}
		return nil, err
	}
	return doctor, nil
}

func (s *ScheduleServiceImpl) ruleFromDTO(doctorID int64, dto domain.WeeklyRuleDTO) (domain.WeeklyRule, error) {
	if !validWeekday(dto.DayOfWeek) {
		return domain.WeeklyRule{}, fmt.Errorf("%w: неизвестный день недели %q", domain.ErrInvalidSlot, dto.DayOfWeek)
	}

	start, err := time.Parse(timeLayout, dto.StartTime)
	if err != nil {
		return domain.WeeklyRule{}, fmt.Errorf("%w: неверный формат времени %q", domain.ErrInvalidSlot, dto.StartTime)
	}
	end, err := time.Parse(timeLayout, dto.EndTime)
	if err != nil {
		return domain.WeeklyRule{}, fmt.Errorf("%w: неверный формат времени %q", domain.ErrInvalidSlot, dto.EndTime)
	}
	if !start.Before(end) {
		return domain.WeeklyRule{}, fmt.Errorf("%w: начало интервала должно быть раньше конца", domain.ErrInvalidSlot)
	}

	slotMinutes := dto.SlotMinutes
	if slotMinutes == 0 {
		slotMinutes = domain.DefaultSlotMinutes
	}
	if slotMinutes < minSlotMinutes || slotMinutes > maxSlotMinutes {
		return domain.WeeklyRule{}, fmt.Errorf("%w: длительность слота должна быть от %d до %d минут",
			domain.ErrInvalidSlot, minSlotMinutes, maxSlotMinutes)
	}

	return domain.WeeklyRule{
		DoctorID:    doctorID,
		DayOfWeek:   dto.DayOfWeek,
		StartTime:   start.Format(timeLayout),
		EndTime:     end.Format(timeLayout),
		SlotMinutes: slotMinutes,
	}, nil
}

func validWeekday(day string) bool {
	switch day {
	case "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday":
		return true
	}
	return false
}

// generateDaySlots — чистая функция построения сетки слотов на дату.
// Исключенная дата или отсутствие правила на день недели дают пустую
// сетку. Слот, начинающийся ровно в конец интервала, не создается.
// Правила в шаблоне хранятся валидированными, поэтому ошибки разбора
// времени здесь невозможны.
func generateDaySlots(template *domain.ScheduleTemplate, date time.Time, bookedTimes []string) []domain.Slot {
	for _, exc := range template.ExceptionDates {
		if exc.Date.Format(dateLayout) == date.Format(dateLayout) {
			return []domain.Slot{}
		}
	}

	var rule *domain.WeeklyRule
	weekday := date.Weekday().String()
	for i := range template.WeeklyRules {
		if template.WeeklyRules[i].DayOfWeek == weekday {
			rule = &template.WeeklyRules[i]
			break
		}
	}
	if rule == nil {
		return []domain.Slot{}
	}

	start, err := time.Parse(timeLayout, rule.StartTime)
	if err != nil {
		return []domain.Slot{}
	}
	end, err := time.Parse(timeLayout, rule.EndTime)
	if err != nil {
		return []domain.Slot{}
	}

	slotMinutes := rule.SlotMinutes
	if slotMinutes <= 0 {
		slotMinutes = domain.DefaultSlotMinutes
	}

	booked := make(map[string]bool, len(bookedTimes))
	for _, t := range bookedTimes {
		booked[t] = true
	}

	slots := []domain.Slot{}
	for cur := start; cur.Before(end); cur = cur.Add(time.Duration(slotMinutes) * time.Minute) {
		t := cur.Format(timeLayout)
		slots = append(slots, domain.Slot{
			Time:      t,
			Available: !booked[t],
		})
	}
	return slots
}
