package domain

import (
	"time"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusApproved  BookingStatus = "approved"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// ActiveBookingStatuses — статусы, занимающие слот. Ровно эти статусы
// входят в частичный уникальный индекс bookings_active_slot_uniq.
var ActiveBookingStatuses = []BookingStatus{BookingStatusPending, BookingStatusApproved}

// IsActive — занимает ли запись слот врача.
func (s BookingStatus) IsActive() bool {
	return s == BookingStatusPending || s == BookingStatusApproved
}

// IsTerminal — конечный ли статус: любые переходы из него запрещены.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

// CanTransitionTo — единственное место, где описана машина состояний
// записи. Переход pending -> completed без одобрения разрешен намеренно:
// врач может закрыть прием, который не успел подтвердить. Чтобы требовать
// обязательное одобрение, достаточно убрать этот один случай.
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	switch s {
	case BookingStatusPending:
		return target == BookingStatusApproved ||
			target == BookingStatusCancelled ||
			target == BookingStatusCompleted
	case BookingStatusApproved:
		return target == BookingStatusCancelled ||
			target == BookingStatusCompleted
	default:
		return false
	}
}

type PaymentMethod string

const (
	PaymentMethodCash      PaymentMethod = "cash"
	PaymentMethodCard      PaymentMethod = "card"
	PaymentMethodInsurance PaymentMethod = "insurance"
	PaymentMethodOnline    PaymentMethod = "online"
)

type Booking struct {
	ID                 int64         `json:"id"`
	DoctorID           int64         `json:"doctor_id"`
	PatientID          int64         `json:"patient_id"`
	AppointmentDate    time.Time     `json:"appointment_date"`
	AppointmentTime    string        `json:"appointment_time"`
	Status             BookingStatus `json:"status"`
	TicketPrice        float64       `json:"ticket_price"`
	IsPaid             bool          `json:"is_paid"`
	PaymentMethod      PaymentMethod `json:"payment_method"`
	PaymentID          *string       `json:"payment_id,omitempty"`
	VisitNotes         *VisitNotes   `json:"visit_notes,omitempty"`
	CancellationReason *string       `json:"cancellation_reason,omitempty"`
	CancelledBy        *UserRole     `json:"cancelled_by,omitempty"`
	CancelledAt        *time.Time    `json:"cancelled_at,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
	PatientName        string        `json:"patient_name,omitempty"`
	PatientPhone       string        `json:"patient_phone,omitempty"`
	DoctorName         string        `json:"doctor_name,omitempty"`
	DoctorSpecialty    string        `json:"doctor_specialization,omitempty"`
}

// VisitNotes заполняет врач при завершении приема. Хранится как JSONB.
type VisitNotes struct {
	Symptoms     string             `json:"symptoms,omitempty"`
	Diagnosis    string             `json:"diagnosis,omitempty"`
	Prescription []PrescriptionItem `json:"prescription,omitempty"`
	LabTests     []string           `json:"lab_tests,omitempty"`
	FollowUpDate string             `json:"follow_up_date,omitempty"`
	DoctorNotes  string             `json:"doctor_notes,omitempty"`
}

type PrescriptionItem struct {
	Medicine     string `json:"medicine"`
	Dosage       string `json:"dosage,omitempty"`
	Duration     string `json:"duration,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

type CreateBookingDTO struct {
	DoctorID        int64          `json:"doctor_id" binding:"required"`
	AppointmentDate string         `json:"appointment_date" binding:"required"`
	AppointmentTime string         `json:"appointment_time" binding:"required"`
	TicketPrice     *float64       `json:"ticket_price" binding:"omitempty,min=0"`
	PaymentMethod   *PaymentMethod `json:"payment_method" binding:"omitempty,oneof=cash card insurance online"`
}

type RescheduleBookingDTO struct {
	AppointmentDate *string `json:"appointment_date"`
	AppointmentTime *string `json:"appointment_time"`
}

type CancelBookingDTO struct {
	Reason string `json:"reason,omitempty"`
}

type CompleteBookingDTO struct {
	VisitNotes *VisitNotes `json:"visit_notes,omitempty"`
}

type BookingFilter struct {
	DoctorID  *int64         `json:"doctor_id"`
	PatientID *int64         `json:"patient_id"`
	Status    *BookingStatus `json:"status"`
	StartDate *time.Time     `json:"start_date"`
	EndDate   *time.Time     `json:"end_date"`
	Limit     int            `json:"limit"`
	Offset    int            `json:"offset"`
}
