package domain

import (
	"time"
)

// WeeklyRule — правило еженедельной доступности врача. У врача не может
// быть двух правил на один день недели: повторная запись заменяет старую.
type WeeklyRule struct {
	ID          int64     `json:"id"`
	DoctorID    int64     `json:"doctor_id"`
	DayOfWeek   string    `json:"day_of_week"`
	StartTime   string    `json:"start_time"`
	EndTime     string    `json:"end_time"`
	SlotMinutes int       `json:"slot_minutes"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ExceptionDate помечает дату полностью недоступной независимо от
// еженедельных правил.
type ExceptionDate struct {
	ID        int64     `json:"id"`
	DoctorID  int64     `json:"doctor_id"`
	Date      time.Time `json:"date"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ScheduleTemplate — полный шаблон расписания врача. Читается целиком на
// каждый запрос; обновляется только атомарной заменой.
type ScheduleTemplate struct {
	DoctorID       int64           `json:"doctor_id"`
	WeeklyRules    []WeeklyRule    `json:"weekly_rules"`
	ExceptionDates []ExceptionDate `json:"exception_dates"`
}

// Slot — вычисляемый слот на конкретную дату. Не хранится в БД, живет
// один запрос.
type Slot struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

const DefaultSlotMinutes = 30

type WeeklyRuleDTO struct {
	DayOfWeek   string `json:"day_of_week" binding:"required,oneof=Monday Tuesday Wednesday Thursday Friday Saturday Sunday"`
	StartTime   string `json:"start_time" binding:"required"`
	EndTime     string `json:"end_time" binding:"required"`
	SlotMinutes int    `json:"slot_minutes,omitempty"`
}

type ExceptionDateDTO struct {
	Date   string `json:"date" binding:"required"`
	Reason string `json:"reason,omitempty"`
}

// ReplaceTemplateDTO заменяет шаблон расписания целиком, как это делает
// кабинет врача при сохранении формы.
type ReplaceTemplateDTO struct {
	WeeklyRules    []WeeklyRuleDTO    `json:"weekly_rules"`
	ExceptionDates []ExceptionDateDTO `json:"exception_dates"`
}
