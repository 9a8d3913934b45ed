package domain

import (
	"time"
)

type DoctorApprovalStatus string

const (
	DoctorApprovalPending  DoctorApprovalStatus = "pending"
	DoctorApprovalApproved DoctorApprovalStatus = "approved"
	DoctorApprovalRejected DoctorApprovalStatus = "rejected"
)

type Doctor struct {
	ID             int64                `json:"id"`
	UserID         int64                `json:"user_id"`
	Specialization string               `json:"specialization"`
	Bio            string               `json:"bio,omitempty"`
	About          string               `json:"about,omitempty"`
	TicketPrice    float64              `json:"ticket_price"`
	Hospital       Hospital             `json:"hospital"`
	Qualifications []Qualification      `json:"qualifications"`
	Experiences    []Experience         `json:"experiences"`
	PhotoURL       string               `json:"photo_url,omitempty"`
	ApprovalStatus DoctorApprovalStatus `json:"approval_status"`
	AverageRating  float64              `json:"average_rating"`
	ReviewsCount   int                  `json:"reviews_count"`
	TotalPatients  int                  `json:"total_patients"`
	IsActive       bool                 `json:"is_active"`
	User           User                 `json:"user"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// Bookable — можно ли записываться к врачу. Проверяется при каждом
// создании или переносе записи.
func (d *Doctor) Bookable() bool {
	return d.ApprovalStatus == DoctorApprovalApproved && d.IsActive
}

type Hospital struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
}

type Qualification struct {
	Degree     string `json:"degree"`
	University string `json:"university"`
	Year       int    `json:"year,omitempty"`
}

type Experience struct {
	Position  string `json:"position"`
	Hospital  string `json:"hospital"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	IsCurrent bool   `json:"is_current,omitempty"`
}

type CreateDoctorDTO struct {
	UserID         int64           `json:"user_id,omitempty"`
	Specialization string          `json:"specialization" binding:"required"`
	Bio            string          `json:"bio,omitempty" binding:"max=200"`
	About          string          `json:"about,omitempty" binding:"max=1000"`
	TicketPrice    float64         `json:"ticket_price,omitempty" binding:"min=0"`
	Hospital       *Hospital       `json:"hospital,omitempty"`
	Qualifications []Qualification `json:"qualifications,omitempty"`
	Experiences    []Experience    `json:"experiences,omitempty"`
}

type UpdateDoctorDTO struct {
	Specialization *string          `json:"specialization"`
	Bio            *string          `json:"bio" binding:"omitempty,max=200"`
	About          *string          `json:"about" binding:"omitempty,max=1000"`
	TicketPrice    *float64         `json:"ticket_price" binding:"omitempty,min=0"`
	Hospital       *Hospital        `json:"hospital"`
	Qualifications *[]Qualification `json:"qualifications"`
	Experiences    *[]Experience    `json:"experiences"`
}

type DoctorFilter struct {
	Specialization *string               `json:"specialization"`
	MinRating      *float64              `json:"min_rating"`
	ApprovalStatus *DoctorApprovalStatus `json:"approval_status"`
	Limit          int                   `json:"limit"`
	Offset         int                   `json:"offset"`
}

// DoctorStats — агрегаты для кабинета врача и панели администратора.
type DoctorStats struct {
	TotalPatients     int     `json:"total_patients"`
	AverageRating     float64 `json:"average_rating"`
	ReviewsCount      int     `json:"reviews_count"`
	PendingBookings   int     `json:"pending_bookings"`
	ApprovedBookings  int     `json:"approved_bookings"`
	CompletedBookings int     `json:"completed_bookings"`
	CancelledBookings int     `json:"cancelled_bookings"`
}

type AdminOverview struct {
	TotalPatients    int            `json:"total_patients"`
	TotalDoctors     int            `json:"total_doctors"`
	PendingApprovals int            `json:"pending_approvals"`
	BookingsByStatus map[string]int `json:"bookings_by_status"`
}
