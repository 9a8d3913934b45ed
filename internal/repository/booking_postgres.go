package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"medbook/internal/domain"
)

// Уникальность активного слота гарантирует частичный индекс
// bookings_active_slot_uniq (doctor_id, appointment_date, appointment_time
// WHERE status IN ('pending','approved')). Проверки COUNT внутри транзакций
// нужны только для понятного сообщения об ошибке: источником истины
// остается индекс.
const activeSlotIndexName = "bookings_active_slot_uniq"

type BookingRepo struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) *BookingRepo {
	return &BookingRepo{db: db}
}

func isActiveSlotViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == activeSlotIndexName
	}
	return false
}

func (r *BookingRepo) Create(ctx context.Context, booking domain.Booking) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	checkQuery := `
		SELECT COUNT(*)
		FROM bookings
		WHERE doctor_id = $1
		AND appointment_date = $2
		AND appointment_time = $3
		AND status IN ('pending', 'approved')
	`

	var count int
	err = tx.QueryRow(ctx, checkQuery, booking.DoctorID, booking.AppointmentDate, booking.AppointmentTime).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка проверки доступности слота: %w", err)
	}

	if count > 0 {
		return 0, domain.ErrSlotConflict
	}

	query := `
		INSERT INTO bookings (doctor_id, patient_id, appointment_date, appointment_time, status, ticket_price, is_paid, payment_method, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		RETURNING id
	`

	now := time.Now()
	var id int64
	err = tx.QueryRow(ctx, query,
		booking.DoctorID,
		booking.PatientID,
		booking.AppointmentDate,
		booking.AppointmentTime,
		domain.BookingStatusPending,
		booking.TicketPrice,
		booking.IsPaid,
		booking.PaymentMethod,
		now,
	).Scan(&id)

	if err != nil {
		if isActiveSlotViolation(err) {
			return 0, domain.ErrSlotConflict
		}
		return 0, fmt.Errorf("ошибка создания записи на прием: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		if isActiveSlotViolation(err) {
			return 0, domain.ErrSlotConflict
		}
		return 0, fmt.Errorf("ошибка при коммите транзакции: %w", err)
	}

	return id, nil
}

const bookingSelect = `
	SELECT b.id, b.doctor_id, b.patient_id, b.appointment_date, b.appointment_time, b.status,
	       b.ticket_price, b.is_paid, b.payment_method, b.payment_id, b.visit_notes,
	       b.cancellation_reason, b.cancelled_by, b.cancelled_at, b.created_at, b.updated_at,
	       p.name AS patient_name, p.phone AS patient_phone,
	       du.name AS doctor_name, d.specialization AS doctor_specialization
	FROM bookings b
	JOIN users p ON b.patient_id = p.id
	JOIN doctors d ON b.doctor_id = d.id
	JOIN users du ON d.user_id = du.id
`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var booking domain.Booking
	var notesJSON []byte

	err := row.Scan(
		&booking.ID,
		&booking.DoctorID,
		&booking.PatientID,
		&booking.AppointmentDate,
		&booking.AppointmentTime,
		&booking.Status,
		&booking.TicketPrice,
		&booking.IsPaid,
		&booking.PaymentMethod,
		&booking.PaymentID,
		&notesJSON,
		&booking.CancellationReason,
		&booking.CancelledBy,
		&booking.CancelledAt,
		&booking.CreatedAt,
		&booking.UpdatedAt,
		&booking.PatientName,
		&booking.PatientPhone,
		&booking.DoctorName,
		&booking.DoctorSpecialty,
	)
	if err != nil {
		return nil, err
	}

	if len(notesJSON) > 0 {
		var notes domain.VisitNotes
		if err := json.Unmarshal(notesJSON, &notes); err != nil {
			return nil, fmt.Errorf("ошибка разбора заметок о приеме: %w", err)
		}
		booking.VisitNotes = &notes
	}

	return &booking, nil
}

func (r *BookingRepo) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	booking, err := scanBooking(r.db.QueryRow(ctx, bookingSelect+" WHERE b.id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения записи на прием: %w", err)
	}
	return booking, nil
}

func (r *BookingRepo) Reschedule(ctx context.Context, id int64, date time.Time, timeStr string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var doctorID int64
	err = tx.QueryRow(ctx, `SELECT doctor_id FROM bookings WHERE id = $1`, id).Scan(&doctorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("ошибка получения текущих данных записи: %w", err)
	}

	checkQuery := `
		SELECT COUNT(*)
		FROM bookings
		WHERE doctor_id = $1
		AND appointment_date = $2
		AND appointment_time = $3
		AND id != $4
		AND status IN ('pending', 'approved')
	`

	var count int
	err = tx.QueryRow(ctx, checkQuery, doctorID, date, timeStr, id).Scan(&count)
	if err != nil {
		return fmt.Errorf("ошибка проверки доступности слота: %w", err)
	}

	if count > 0 {
		return domain.ErrSlotConflict
	}

	tag, err := tx.Exec(ctx, `
		UPDATE bookings
		SET appointment_date = $1, appointment_time = $2, updated_at = $3
		WHERE id = $4 AND status IN ('pending', 'approved')
	`, date, timeStr, time.Now(), id)
	if err != nil {
		if isActiveSlotViolation(err) {
			return domain.ErrSlotConflict
		}
		return fmt.Errorf("ошибка переноса записи: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrInvalidState
	}

	if err = tx.Commit(ctx); err != nil {
		if isActiveSlotViolation(err) {
			return domain.ErrSlotConflict
		}
		return fmt.Errorf("ошибка при коммите транзакции: %w", err)
	}

	return nil
}

// Approve переводит запись pending -> approved. Условие по статусу прямо в
// UPDATE: из двух конкурентных переходов выиграет ровно один.
func (r *BookingRepo) Approve(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE bookings
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`, domain.BookingStatusApproved, time.Now(), id, domain.BookingStatusPending)
	if err != nil {
		return fmt.Errorf("ошибка подтверждения записи: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrInvalidState
	}

	return nil
}

func (r *BookingRepo) Cancel(ctx context.Context, id int64, byRole domain.UserRole, reason string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE bookings
		SET status = $1, cancelled_by = $2, cancellation_reason = $3, cancelled_at = $4, updated_at = $4
		WHERE id = $5 AND status IN ('pending', 'approved')
	`, domain.BookingStatusCancelled, byRole, reason, time.Now(), id)
	if err != nil {
		return fmt.Errorf("ошибка отмены записи: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrInvalidState
	}

	return nil
}

func (r *BookingRepo) Complete(ctx context.Context, id int64, notes *domain.VisitNotes) error {
	var notesJSON []byte
	if notes != nil {
		var err error
		notesJSON, err = json.Marshal(notes)
		if err != nil {
			return fmt.Errorf("ошибка сериализации заметок о приеме: %w", err)
		}
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE bookings
		SET status = $1, visit_notes = COALESCE($2, visit_notes), updated_at = $3
		WHERE id = $4 AND status IN ('pending', 'approved')
	`, domain.BookingStatusCompleted, notesJSON, time.Now(), id)
	if err != nil {
		return fmt.Errorf("ошибка завершения приема: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrInvalidState
	}

	return nil
}

func buildBookingConditions(filter domain.BookingFilter, argCount int) ([]string, []interface{}, int) {
	var conditions []string
	var args []interface{}

	if filter.DoctorID != nil {
		conditions = append(conditions, fmt.Sprintf("b.doctor_id = $%d", argCount))
		args = append(args, *filter.DoctorID)
		argCount++
	}

	if filter.PatientID != nil {
		conditions = append(conditions, fmt.Sprintf("b.patient_id = $%d", argCount))
		args = append(args, *filter.PatientID)
		argCount++
	}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("b.status = $%d", argCount))
		args = append(args, *filter.Status)
		argCount++
	}

	if filter.StartDate != nil {
		conditions = append(conditions, fmt.Sprintf("b.appointment_date >= $%d", argCount))
		args = append(args, *filter.StartDate)
		argCount++
	}

	if filter.EndDate != nil {
		conditions = append(conditions, fmt.Sprintf("b.appointment_date <= $%d", argCount))
		args = append(args, *filter.EndDate)
		argCount++
	}

	return conditions, args, argCount
}

func (r *BookingRepo) List(ctx context.Context, filter domain.BookingFilter) ([]domain.Booking, error) {
	conditions, args, argCount := buildBookingConditions(filter, 1)

	query := bookingSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY b.appointment_date DESC, b.appointment_time DESC"

	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", err)
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки записи: %w", err)
		}
		bookings = append(bookings, *booking)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при итерации по строкам: %w", err)
	}

	return bookings, nil
}

func (r *BookingRepo) CountByFilter(ctx context.Context, filter domain.BookingFilter) (int, error) {
	conditions, args, _ := buildBookingConditions(filter, 1)

	query := "SELECT COUNT(*) FROM bookings b"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	var count int
	err := r.db.QueryRow(ctx, query, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчета записей: %w", err)
	}

	return count, nil
}

func (r *BookingRepo) GetBookedTimes(ctx context.Context, doctorID int64, date time.Time, excludeID *int64) ([]string, error) {
	query := `
		SELECT appointment_time
		FROM bookings
		WHERE doctor_id = $1
		AND appointment_date = $2
		AND status IN ('pending', 'approved')
	`
	args := []interface{}{doctorID, date}

	if excludeID != nil {
		query += " AND id != $3"
		args = append(args, *excludeID)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения занятых слотов: %w", err)
	}
	defer rows.Close()

	times := make([]string, 0)
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("ошибка сканирования слотов: %w", err)
		}
		times = append(times, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при обработке результатов: %w", err)
	}

	return times, nil
}
