package service

import (
	"testing"
	"time"

	"medbook/internal/domain"
)

// 2026-09-07 — понедельник.
var mondayDate = time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)

func templateWithRule(rule domain.WeeklyRule) *domain.ScheduleTemplate {
	return &domain.ScheduleTemplate{
		DoctorID:    rule.DoctorID,
		WeeklyRules: []domain.WeeklyRule{rule},
	}
}

func TestGenerateDaySlots_Basic(t *testing.T) {
	template := templateWithRule(domain.WeeklyRule{
		DoctorID:    1,
		DayOfWeek:   "Monday",
		StartTime:   "09:00",
		EndTime:     "10:00",
		SlotMinutes: 30,
	})

	slots := generateDaySlots(template, mondayDate, nil)

	if len(slots) != 2 {
		t.Fatalf("ожидалось 2 слота, получено %d", len(slots))
	}
	if slots[0].Time != "09:00" || slots[1].Time != "09:30" {
		t.Fatalf("неверные времена слотов: %v", slots)
	}
	for _, s := range slots {
		if !s.Available {
			t.Fatalf("слот %s должен быть свободен", s.Time)
		}
	}
}

func TestGenerateDaySlots_EndBoundaryExcluded(t *testing.T) {
	template := templateWithRule(domain.WeeklyRule{
		DayOfWeek:   "Monday",
		StartTime:   "09:00",
		EndTime:     "10:30",
		SlotMinutes: 30,
	})

	slots := generateDaySlots(template, mondayDate, nil)

	if len(slots) != 3 {
		t.Fatalf("ожидалось 3 слота, получено %d", len(slots))
	}
	last := slots[len(slots)-1]
	if last.Time != "10:00" {
		t.Fatalf("последний слот должен быть 10:00, получен %s", last.Time)
	}
}

func TestGenerateDaySlots_UnevenInterval(t *testing.T) {
	// Интервал не кратен шагу: слот, который начался бы до конца, но
	// закончился после, все равно создается, а ровно в конец — нет.
	template := templateWithRule(domain.WeeklyRule{
		DayOfWeek:   "Monday",
		StartTime:   "09:00",
		EndTime:     "09:50",
		SlotMinutes: 30,
	})

	slots := generateDaySlots(template, mondayDate, nil)

	if len(slots) != 2 {
		t.Fatalf("ожидалось 2 слота, получено %d", len(slots))
	}
	if slots[1].Time != "09:30" {
		t.Fatalf("второй слот должен быть 09:30, получен %s", slots[1].Time)
	}
}

func TestGenerateDaySlots_NoRuleForWeekday(t *testing.T) {
	template := templateWithRule(domain.WeeklyRule{
		DayOfWeek:   "Tuesday",
		StartTime:   "09:00",
		EndTime:     "18:00",
		SlotMinutes: 30,
	})

	slots := generateDaySlots(template, mondayDate, nil)

	if len(slots) != 0 {
		t.Fatalf("для дня без правила ожидалась пустая сетка, получено %d слотов", len(slots))
	}
}

func TestGenerateDaySlots_ExceptionDateWins(t *testing.T) {
	template := templateWithRule(domain.WeeklyRule{
		DayOfWeek:   "Monday",
		StartTime:   "09:00",
		EndTime:     "18:00",
		SlotMinutes: 30,
	})
	template.ExceptionDates = []domain.ExceptionDate{
		{Date: mondayDate, Reason: "отпуск"},
	}

	slots := generateDaySlots(template, mondayDate, nil)

	if len(slots) != 0 {
		t.Fatalf("исключенная дата должна давать пустую сетку, получено %d слотов", len(slots))
	}
}

func TestGenerateDaySlots_BookedTimesMarked(t *testing.T) {
	template := templateWithRule(domain.WeeklyRule{
		DayOfWeek:   "Monday",
		StartTime:   "09:00",
		EndTime:     "11:00",
		SlotMinutes: 30,
	})

	slots := generateDaySlots(template, mondayDate, []string{"09:30", "10:30"})

	expected := map[string]bool{
		"09:00": true,
		"09:30": false,
		"10:00": true,
		"10:30": false,
	}
	if len(slots) != len(expected) {
		t.Fatalf("ожидалось %d слотов, получено %d", len(expected), len(slots))
	}
	for _, s := range slots {
		if s.Available != expected[s.Time] {
			t.Fatalf("слот %s: ожидалась доступность %v, получена %v", s.Time, expected[s.Time], s.Available)
		}
	}
}

func TestGenerateDaySlots_DefaultSlotMinutes(t *testing.T) {
	template := templateWithRule(domain.WeeklyRule{
		DayOfWeek: "Monday",
		StartTime: "09:00",
		EndTime:   "10:00",
	})

	slots := generateDaySlots(template, mondayDate, nil)

	if len(slots) != 2 {
		t.Fatalf("при нулевом шаге должен использоваться шаг по умолчанию, получено %d слотов", len(slots))
	}
}

func TestGenerateDaySlots_Deterministic(t *testing.T) {
	template := templateWithRule(domain.WeeklyRule{
		DayOfWeek:   "Monday",
		StartTime:   "08:00",
		EndTime:     "12:00",
		SlotMinutes: 15,
	})

	first := generateDaySlots(template, mondayDate, []string{"08:45"})
	second := generateDaySlots(template, mondayDate, []string{"08:45"})

	if len(first) != len(second) {
		t.Fatalf("повторный вызов дал другое количество слотов: %d и %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("слот %d отличается: %v и %v", i, first[i], second[i])
		}
	}
}

func TestRuleFromDTO_Validation(t *testing.T) {
	s := &ScheduleServiceImpl{}

	cases := []struct {
		name    string
		dto     domain.WeeklyRuleDTO
		wantErr bool
	}{
		{"корректное правило", domain.WeeklyRuleDTO{DayOfWeek: "Monday", StartTime: "09:00", EndTime: "18:00", SlotMinutes: 30}, false},
		{"шаг по умолчанию", domain.WeeklyRuleDTO{DayOfWeek: "Friday", StartTime: "09:00", EndTime: "12:00"}, false},
		{"начало после конца", domain.WeeklyRuleDTO{DayOfWeek: "Monday", StartTime: "18:00", EndTime: "09:00", SlotMinutes: 30}, true},
		{"начало равно концу", domain.WeeklyRuleDTO{DayOfWeek: "Monday", StartTime: "09:00", EndTime: "09:00", SlotMinutes: 30}, true},
		{"неверный формат времени", domain.WeeklyRuleDTO{DayOfWeek: "Monday", StartTime: "9 утра", EndTime: "18:00", SlotMinutes: 30}, true},
		{"слишком короткий слот", domain.WeeklyRuleDTO{DayOfWeek: "Monday", StartTime: "09:00", EndTime: "18:00", SlotMinutes: 5}, true},
		{"слишком длинный слот", domain.WeeklyRuleDTO{DayOfWeek: "Monday", StartTime: "09:00", EndTime: "18:00", SlotMinutes: 180}, true},
		{"неизвестный день", domain.WeeklyRuleDTO{DayOfWeek: "Someday", StartTime: "09:00", EndTime: "18:00", SlotMinutes: 30}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rule, err := s.ruleFromDTO(1, tc.dto)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ожидалась ошибка, получено правило %+v", rule)
				}
				return
			}
			if err != nil {
				t.Fatalf("не ожидалась ошибка: %v", err)
			}
			if rule.SlotMinutes == 0 {
				t.Fatal("шаг слота не должен оставаться нулевым")
			}
		})
	}
}
