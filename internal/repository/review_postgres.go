package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"medbook/internal/domain"
)

type ReviewRepo struct {
	db *pgxpool.Pool
}

func NewReviewRepository(db *pgxpool.Pool) *ReviewRepo {
	return &ReviewRepo{db: db}
}

func (r *ReviewRepo) Create(ctx context.Context, patientID int64, dto domain.CreateReviewDTO) (int64, error) {
	var id int64

	query := `
		INSERT INTO reviews (doctor_id, patient_id, booking_id, rating, review_text, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		dto.DoctorID,
		patientID,
		dto.BookingID,
		dto.Rating,
		dto.ReviewText,
		time.Now(),
	).Scan(&id)

	if err != nil {
		return 0, fmt.Errorf("ошибка создания отзыва: %w", err)
	}

	return id, nil
}

const reviewSelect = `
	SELECT r.id, r.doctor_id, r.patient_id, r.booking_id, r.rating, r.review_text,
	       u.name AS patient_name, r.created_at, r.updated_at
	FROM reviews r
	JOIN users u ON r.patient_id = u.id
`

func scanReview(row pgx.Row) (*domain.Review, error) {
	var review domain.Review
	err := row.Scan(
		&review.ID,
		&review.DoctorID,
		&review.PatientID,
		&review.BookingID,
		&review.Rating,
		&review.ReviewText,
		&review.PatientName,
		&review.CreatedAt,
		&review.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *ReviewRepo) GetByID(ctx context.Context, id int64) (*domain.Review, error) {
	review, err := scanReview(r.db.QueryRow(ctx, reviewSelect+" WHERE r.id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения отзыва: %w", err)
	}
	return review, nil
}

func (r *ReviewRepo) GetByBookingID(ctx context.Context, bookingID int64) (*domain.Review, error) {
	review, err := scanReview(r.db.QueryRow(ctx, reviewSelect+" WHERE r.booking_id = $1", bookingID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения отзыва: %w", err)
	}
	return review, nil
}

func (r *ReviewRepo) Update(ctx context.Context, id int64, dto domain.UpdateReviewDTO) error {
	var updateFields []string
	var args []interface{}

	argCount := 1

	if dto.Rating != nil {
		updateFields = append(updateFields, fmt.Sprintf("rating = $%d", argCount))
		args = append(args, *dto.Rating)
		argCount++
	}

	if dto.ReviewText != nil {
		updateFields = append(updateFields, fmt.Sprintf("review_text = $%d", argCount))
		args = append(args, *dto.ReviewText)
		argCount++
	}

	if len(updateFields) == 0 {
		return nil
	}

	updateFields = append(updateFields, fmt.Sprintf("updated_at = $%d", argCount))
	args = append(args, time.Now())
	argCount++

	args = append(args, id)
	query := fmt.Sprintf(`
		UPDATE reviews
		SET %s
		WHERE id = $%d
	`, strings.Join(updateFields, ", "), argCount)

	_, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("ошибка обновления отзыва: %w", err)
	}

	return nil
}

func (r *ReviewRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления отзыва: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	return nil
}

func buildReviewConditions(filter domain.ReviewFilter) ([]string, []interface{}, int) {
	var conditions []string
	var args []interface{}
	argCount := 1

	if filter.DoctorID != nil {
		conditions = append(conditions, fmt.Sprintf("r.doctor_id = $%d", argCount))
		args = append(args, *filter.DoctorID)
		argCount++
	}

	if filter.PatientID != nil {
		conditions = append(conditions, fmt.Sprintf("r.patient_id = $%d", argCount))
		args = append(args, *filter.PatientID)
		argCount++
	}

	return conditions, args, argCount
}

func (r *ReviewRepo) List(ctx context.Context, filter domain.ReviewFilter) ([]domain.Review, error) {
	conditions, args, argCount := buildReviewConditions(filter)

	query := reviewSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY r.created_at DESC"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка отзывов: %w", err)
	}
	defer rows.Close()

	reviews := make([]domain.Review, 0)
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки отзыва: %w", err)
		}
		reviews = append(reviews, *review)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при итерации по строкам: %w", err)
	}

	return reviews, nil
}

func (r *ReviewRepo) CountByFilter(ctx context.Context, filter domain.ReviewFilter) (int, error) {
	conditions, args, _ := buildReviewConditions(filter)

	query := "SELECT COUNT(*) FROM reviews r"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	var count int
	err := r.db.QueryRow(ctx, query, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчета отзывов: %w", err)
	}

	return count, nil
}
