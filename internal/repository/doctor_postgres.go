package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"medbook/internal/domain"
)

type DoctorRepo struct {
	db *pgxpool.Pool
}

func NewDoctorRepository(db *pgxpool.Pool) *DoctorRepo {
	return &DoctorRepo{db: db}
}

func (r *DoctorRepo) Create(ctx context.Context, userID int64, dto domain.CreateDoctorDTO) (int64, error) {
	hospital := domain.Hospital{}
	if dto.Hospital != nil {
		hospital = *dto.Hospital
	}

	hospitalJSON, err := json.Marshal(hospital)
	if err != nil {
		return 0, fmt.Errorf("ошибка сериализации данных клиники: %w", err)
	}

	qualificationsJSON, err := json.Marshal(dto.Qualifications)
	if err != nil {
		return 0, fmt.Errorf("ошибка сериализации квалификаций: %w", err)
	}

	experiencesJSON, err := json.Marshal(dto.Experiences)
	if err != nil {
		return 0, fmt.Errorf("ошибка сериализации опыта работы: %w", err)
	}

	query := `
		INSERT INTO doctors (user_id, specialization, bio, about, ticket_price, hospital, qualifications, experiences, approval_status, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, true, $10, $10)
		RETURNING id
	`

	var id int64
	err = r.db.QueryRow(ctx, query,
		userID,
		dto.Specialization,
		dto.Bio,
		dto.About,
		dto.TicketPrice,
		hospitalJSON,
		qualificationsJSON,
		experiencesJSON,
		domain.DoctorApprovalPending,
		time.Now(),
	).Scan(&id)

	if err != nil {
		return 0, fmt.Errorf("ошибка создания профиля врача: %w", err)
	}

	return id, nil
}

const doctorSelect = `
	SELECT d.id, d.user_id, d.specialization, d.bio, d.about, d.ticket_price,
	       d.hospital, d.qualifications, d.experiences, d.photo_url,
	       d.approval_status, d.average_rating, d.reviews_count, d.total_patients,
	       d.is_active, d.created_at, d.updated_at,
	       u.id, u.name, u.email, u.phone, u.role, u.is_active, u.created_at, u.updated_at
	FROM doctors d
	JOIN users u ON d.user_id = u.id
`

func scanDoctor(row pgx.Row) (*domain.Doctor, error) {
	var doctor domain.Doctor
	var hospitalJSON, qualificationsJSON, experiencesJSON []byte

	err := row.Scan(
		&doctor.ID,
		&doctor.UserID,
		&doctor.Specialization,
		&doctor.Bio,
		&doctor.About,
		&doctor.TicketPrice,
		&hospitalJSON,
		&qualificationsJSON,
		&experiencesJSON,
		&doctor.PhotoURL,
		&doctor.ApprovalStatus,
		&doctor.AverageRating,
		&doctor.ReviewsCount,
		&doctor.TotalPatients,
		&doctor.IsActive,
		&doctor.CreatedAt,
		&doctor.UpdatedAt,
		&doctor.User.ID,
		&doctor.User.Name,
		&doctor.User.Email,
		&doctor.User.Phone,
		&doctor.User.Role,
		&doctor.User.IsActive,
		&doctor.User.CreatedAt,
		&doctor.User.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(hospitalJSON) > 0 {
		if err := json.Unmarshal(hospitalJSON, &doctor.Hospital); err != nil {
			return nil, fmt.Errorf("ошибка разбора данных клиники: %w", err)
		}
	}
	if len(qualificationsJSON) > 0 {
		if err := json.Unmarshal(qualificationsJSON, &doctor.Qualifications); err != nil {
			return nil, fmt.Errorf("ошибка разбора квалификаций: %w", err)
		}
	}
	if len(experiencesJSON) > 0 {
		if err := json.Unmarshal(experiencesJSON, &doctor.Experiences); err != nil {
			return nil, fmt.Errorf("ошибка разбора опыта работы: %w", err)
		}
	}

	return &doctor, nil
}

func (r *DoctorRepo) GetByID(ctx context.Context, id int64) (*domain.Doctor, error) {
	doctor, err := scanDoctor(r.db.QueryRow(ctx, doctorSelect+" WHERE d.id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDoctorNotFound
		}
		return nil, fmt.Errorf("ошибка получения профиля врача: %w", err)
	}
	return doctor, nil
}

func (r *DoctorRepo) GetByUserID(ctx context.Context, userID int64) (*domain.Doctor, error) {
	doctor, err := scanDoctor(r.db.QueryRow(ctx, doctorSelect+" WHERE d.user_id = $1", userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDoctorNotFound
		}
		return nil, fmt.Errorf("ошибка получения профиля врача: %w", err)
	}
	return doctor, nil
}

func (r *DoctorRepo) Update(ctx context.Context, id int64, dto domain.UpdateDoctorDTO) error {
	var updateFields []string
	var args []interface{}

	argCount := 1

	if dto.Specialization != nil {
		updateFields = append(updateFields, fmt.Sprintf("specialization = $%d", argCount))
		args = append(args, *dto.Specialization)
		argCount++
	}

	if dto.Bio != nil {
		updateFields = append(updateFields, fmt.Sprintf("bio = $%d", argCount))
		args = append(args, *dto.Bio)
		argCount++
	}

	if dto.About != nil {
		updateFields = append(updateFields, fmt.Sprintf("about = $%d", argCount))
		args = append(args, *dto.About)
		argCount++
	}

	if dto.TicketPrice != nil {
		updateFields = append(updateFields, fmt.Sprintf("ticket_price = $%d", argCount))
		args = append(args, *dto.TicketPrice)
		argCount++
	}

	if dto.Hospital != nil {
		hospitalJSON, err := json.Marshal(dto.Hospital)
		if err != nil {
			return fmt.Errorf("ошибка сериализации данных клиники: %w", err)
		}
		updateFields = append(updateFields, fmt.Sprintf("hospital = $%d", argCount))
		args = append(args, hospitalJSON)
		argCount++
	}

	if dto.Qualifications != nil {
		qualificationsJSON, err := json.Marshal(*dto.Qualifications)
		if err != nil {
			return fmt.Errorf("ошибка сериализации квалификаций: %w", err)
		}
		updateFields = append(updateFields, fmt.Sprintf("qualifications = $%d", argCount))
		args = append(args, qualificationsJSON)
		argCount++
	}

	if dto.Experiences != nil {
		experiencesJSON, err := json.Marshal(*dto.Experiences)
		if err != nil {
			return fmt.Errorf("ошибка сериализации опыта работы: %w", err)
		}
		updateFields = append(updateFields, fmt.Sprintf("experiences = $%d", argCount))
		args = append(args, experiencesJSON)
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
		UPDATE doctors
		SET %s
		WHERE id = $%d
	`, strings.Join(updateFields, ", "), argCount)

	_, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("ошибка обновления профиля врача: %w", err)
	}

	return nil
}

func (r *DoctorRepo) List(ctx context.Context, filter domain.DoctorFilter) ([]domain.Doctor, int, error) {
	var conditions []string
	var args []interface{}
	argCount := 1

	if filter.Specialization != nil {
		conditions = append(conditions, fmt.Sprintf("d.specialization ILIKE $%d", argCount))
		args = append(args, "%"+*filter.Specialization+"%")
		argCount++
	}

	if filter.MinRating != nil {
		conditions = append(conditions, fmt.Sprintf("d.average_rating >= $%d", argCount))
		args = append(args, *filter.MinRating)
		argCount++
	}

	if filter.ApprovalStatus != nil {
		conditions = append(conditions, fmt.Sprintf("d.approval_status = $%d", argCount))
		args = append(args, *filter.ApprovalStatus)
		argCount++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM doctors d"+whereClause, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчета врачей: %w", err)
	}

	query := doctorSelect + whereClause +
		" ORDER BY d.average_rating DESC, d.total_patients DESC" +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка получения списка врачей: %w", err)
	}
	defer rows.Close()

	doctors := make([]domain.Doctor, 0)
	for rows.Next() {
		doctor, err := scanDoctor(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("ошибка сканирования строки врача: %w", err)
		}
		doctors = append(doctors, *doctor)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("ошибка при итерации по строкам: %w", err)
	}

	return doctors, total, nil
}

func (r *DoctorRepo) SetApprovalStatus(ctx context.Context, id int64, status domain.DoctorApprovalStatus) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE doctors
		SET approval_status = $1, updated_at = $2
		WHERE id = $3
	`, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("ошибка обновления статуса одобрения: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrDoctorNotFound
	}

	return nil
}

func (r *DoctorRepo) UpdateProfilePhoto(ctx context.Context, id int64, photoURL string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE doctors
		SET photo_url = $1, updated_at = $2
		WHERE id = $3
	`, photoURL, time.Now(), id)
	if err != nil {
		return fmt.Errorf("ошибка обновления фото профиля: %w", err)
	}

	return nil
}

// RecalculateRating пересчитывает рейтинг по всем отзывам заново, а не
// инкрементально: повторный вызов после ретрая дает тот же результат.
func (r *DoctorRepo) RecalculateRating(ctx context.Context, doctorID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE doctors
		SET average_rating = COALESCE((
			SELECT ROUND(AVG(rating)::numeric, 1) FROM reviews WHERE doctor_id = $1
		), 0),
		reviews_count = (SELECT COUNT(*) FROM reviews WHERE doctor_id = $1),
		updated_at = $2
		WHERE id = $1
	`, doctorID, time.Now())
	if err != nil {
		return fmt.Errorf("ошибка пересчета рейтинга врача: %w", err)
	}

	return nil
}

func (r *DoctorRepo) RecalculatePatients(ctx context.Context, doctorID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE doctors
		SET total_patients = (
			SELECT COUNT(DISTINCT patient_id) FROM bookings
			WHERE doctor_id = $1 AND status = 'completed'
		),
		updated_at = $2
		WHERE id = $1
	`, doctorID, time.Now())
	if err != nil {
		return fmt.Errorf("ошибка пересчета числа пациентов: %w", err)
	}

	return nil
}

func (r *DoctorRepo) GetStats(ctx context.Context, doctorID int64) (*domain.DoctorStats, error) {
	var stats domain.DoctorStats

	err := r.db.QueryRow(ctx, `
		SELECT d.total_patients, d.average_rating, d.reviews_count,
		       COUNT(*) FILTER (WHERE b.status = 'pending'),
		       COUNT(*) FILTER (WHERE b.status = 'approved'),
		       COUNT(*) FILTER (WHERE b.status = 'completed'),
		       COUNT(*) FILTER (WHERE b.status = 'cancelled')
		FROM doctors d
		LEFT JOIN bookings b ON b.doctor_id = d.id
		WHERE d.id = $1
		GROUP BY d.id
	`, doctorID).Scan(
		&stats.TotalPatients,
		&stats.AverageRating,
		&stats.ReviewsCount,
		&stats.PendingBookings,
		&stats.ApprovedBookings,
		&stats.CompletedBookings,
		&stats.CancelledBookings,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDoctorNotFound
		}
		return nil, fmt.Errorf("ошибка получения статистики врача: %w", err)
	}

	return &stats, nil
}

func (r *DoctorRepo) GetAdminOverview(ctx context.Context) (*domain.AdminOverview, error) {
	overview := &domain.AdminOverview{
		BookingsByStatus: make(map[string]int),
	}

	err := r.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users WHERE role = 'patient'),
			(SELECT COUNT(*) FROM doctors),
			(SELECT COUNT(*) FROM doctors WHERE approval_status = 'pending')
	`).Scan(&overview.TotalPatients, &overview.TotalDoctors, &overview.PendingApprovals)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения сводки для администратора: %w", err)
	}

	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM bookings GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения статистики записей: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("ошибка сканирования статистики записей: %w", err)
		}
		overview.BookingsByStatus[status] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при обработке результатов: %w", err)
	}

	return overview, nil
}
