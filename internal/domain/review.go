package domain

import (
	"time"
)

type Review struct {
	ID          int64     `json:"id"`
	DoctorID    int64     `json:"doctor_id"`
	PatientID   int64     `json:"patient_id"`
	BookingID   int64     `json:"booking_id"`
	Rating      int       `json:"rating"`
	ReviewText  string    `json:"review_text,omitempty"`
	PatientName string    `json:"patient_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CreateReviewDTO struct {
	DoctorID   int64  `json:"doctor_id" binding:"required"`
	BookingID  int64  `json:"booking_id" binding:"required"`
	Rating     int    `json:"rating" binding:"required,min=1,max=5"`
	ReviewText string `json:"review_text,omitempty"`
}

type UpdateReviewDTO struct {
	Rating     *int    `json:"rating" binding:"omitempty,min=1,max=5"`
	ReviewText *string `json:"review_text"`
}

type ReviewFilter struct {
	DoctorID  *int64 `json:"doctor_id"`
	PatientID *int64 `json:"patient_id"`
	Limit     int    `json:"limit"`
	Offset    int    `json:"offset"`
}
