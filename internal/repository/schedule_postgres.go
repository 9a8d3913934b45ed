package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"medbook/internal/domain"
)

type ScheduleRepo struct {
	db *pgxpool.Pool
}

func NewScheduleRepository(db *pgxpool.Pool) *ScheduleRepo {
	return &ScheduleRepo{db: db}
}

func (r *ScheduleRepo) GetTemplate(ctx context.Context, doctorID int64) (*domain.ScheduleTemplate, error) {
	template := &domain.ScheduleTemplate{
		DoctorID:       doctorID,
		WeeklyRules:    make([]domain.WeeklyRule, 0),
		ExceptionDates: make([]domain.ExceptionDate, 0),
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, doctor_id, day_of_week, start_time, end_time, slot_minutes, created_at, updated_at
		FROM weekly_rules
		WHERE doctor_id = $1
		ORDER BY CASE day_of_week
			WHEN 'Monday' THEN 1 WHEN 'Tuesday' THEN 2 WHEN 'Wednesday' THEN 3
			WHEN 'Thursday' THEN 4 WHEN 'Friday' THEN 5 WHEN 'Saturday' THEN 6
			ELSE 7 END
	`, doctorID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения еженедельных правил: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rule domain.WeeklyRule
		err := rows.Scan(
			&rule.ID,
			&rule.DoctorID,
			&rule.DayOfWeek,
			&rule.StartTime,
			&rule.EndTime,
			&rule.SlotMinutes,
			&rule.CreatedAt,
			&rule.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования правила: %w", err)
		}
		template.WeeklyRules = append(template.WeeklyRules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при итерации по правилам: %w", err)
	}

	excRows, err := r.db.Query(ctx, `
		SELECT id, doctor_id, date, reason, created_at
		FROM exception_dates
		WHERE doctor_id = $1
		ORDER BY date
	`, doctorID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения дат-исключений: %w", err)
	}
	defer excRows.Close()

	for excRows.Next() {
		var exception domain.ExceptionDate
		err := excRows.Scan(
			&exception.ID,
			&exception.DoctorID,
			&exception.Date,
			&exception.Reason,
			&exception.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования даты-исключения: %w", err)
		}
		template.ExceptionDates = append(template.ExceptionDates, exception)
	}

	if err := excRows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при итерации по датам-исключениям: %w", err)
	}

	return template, nil
}

// ReplaceTemplate заменяет шаблон расписания целиком в одной транзакции:
// параллельные читатели видят либо старый шаблон, либо новый, но никогда
// наполовину записанный.
func (r *ScheduleRepo) ReplaceTemplate(ctx context.Context, doctorID int64, rules []domain.WeeklyRule, exceptions []domain.ExceptionDate) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `DELETE FROM weekly_rules WHERE doctor_id = $1`, doctorID)
	if err != nil {
		return fmt.Errorf("ошибка очистки еженедельных правил: %w", err)
	}

	_, err = tx.Exec(ctx, `DELETE FROM exception_dates WHERE doctor_id = $1`, doctorID)
	if err != nil {
		return fmt.Errorf("ошибка очистки дат-исключений: %w", err)
	}

	now := time.Now()
	for _, rule := range rules {
		_, err = tx.Exec(ctx, `
			INSERT INTO weekly_rules (doctor_id, day_of_week, start_time, end_time, slot_minutes, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $6)
		`, doctorID, rule.DayOfWeek, rule.StartTime, rule.EndTime, rule.SlotMinutes, now)
		if err != nil {
			return fmt.Errorf("ошибка сохранения правила: %w", err)
		}
	}

	for _, exception := range exceptions {
		_, err = tx.Exec(ctx, `
			INSERT INTO exception_dates (doctor_id, date, reason, created_at)
			VALUES ($1, $2, $3, $4)
		`, doctorID, exception.Date, exception.Reason, now)
		if err != nil {
			return fmt.Errorf("ошибка сохранения даты-исключения: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("ошибка при коммите транзакции: %w", err)
	}

	return nil
}

// UpsertWeeklyRule — одно правило на день недели, последняя запись
// побеждает.
func (r *ScheduleRepo) UpsertWeeklyRule(ctx context.Context, rule domain.WeeklyRule) (int64, error) {
	var id int64

	err := r.db.QueryRow(ctx, `
		INSERT INTO weekly_rules (doctor_id, day_of_week, start_time, end_time, slot_minutes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (doctor_id, day_of_week)
		DO UPDATE SET start_time = $3, end_time = $4, slot_minutes = $5, updated_at = $6
		RETURNING id
	`, rule.DoctorID, rule.DayOfWeek, rule.StartTime, rule.EndTime, rule.SlotMinutes, time.Now()).Scan(&id)

	if err != nil {
		return 0, fmt.Errorf("ошибка сохранения правила: %w", err)
	}

	return id, nil
}

func (r *ScheduleRepo) DeleteWeeklyRule(ctx context.Context, doctorID int64, dayOfWeek string) error {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM weekly_rules WHERE doctor_id = $1 AND day_of_week = $2
	`, doctorID, dayOfWeek)
	if err != nil {
		return fmt.Errorf("ошибка удаления правила: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	return nil
}

func (r *ScheduleRepo) AddExceptionDate(ctx context.Context, exception domain.ExceptionDate) (int64, error) {
	var id int64

	err := r.db.QueryRow(ctx, `
		INSERT INTO exception_dates (doctor_id, date, reason, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (doctor_id, date)
		DO UPDATE SET reason = $3
		RETURNING id
	`, exception.DoctorID, exception.Date, exception.Reason, time.Now()).Scan(&id)

	if err != nil {
		return 0, fmt.Errorf("ошибка сохранения даты-исключения: %w", err)
	}

	return id, nil
}

func (r *ScheduleRepo) RemoveExceptionDate(ctx context.Context, doctorID int64, date time.Time) error {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM exception_dates WHERE doctor_id = $1 AND date = $2
	`, doctorID, date)
	if err != nil {
		return fmt.Errorf("ошибка удаления даты-исключения: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	return nil
}
