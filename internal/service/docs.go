package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/phpdave11/gofpdf"
	"go.uber.org/zap"

	"medbook/internal/domain"
	"medbook/internal/repository"
)

type DocsServiceImpl struct {
	bookingRepo repository.BookingRepository
	doctorRepo  repository.DoctorRepository
	logger      *zap.Logger
}

func NewDocsService(bookingRepo repository.BookingRepository, doctorRepo repository.DoctorRepository, logger *zap.Logger) *DocsServiceImpl {
	return &DocsServiceImpl{
		bookingRepo: bookingRepo,
		doctorRepo:  doctorRepo,
		logger:      logger,
	}
}

// GenerateReceipt формирует PDF-квитанцию по записи на прием. Квитанция
// доступна пациенту записи, ее врачу и администратору.
func (s *DocsServiceImpl) GenerateReceipt(ctx context.Context, actor domain.Actor, bookingID int64) ([]byte, string, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, "", err
	}

	if err := s.checkAccess(ctx, actor, booking); err != nil {
		return nil, "", err
	}

	data, filename, err := buildReceiptPDF(booking)
	if err != nil {
		s.logger.Error("ошибка формирования квитанции",
			zap.Int64("booking_id", bookingID),
			zap.Error(err))
		return nil, "", fmt.Errorf("ошибка формирования квитанции: %w", err)
	}

	s.logger.Info("сформирована квитанция", zap.Int64("booking_id", bookingID))
	return data, filename, nil
}

func (s *DocsServiceImpl) checkAccess(ctx context.Context, actor domain.Actor, booking *domain.Booking) error {
	switch actor.Role {
	case domain.UserRoleAdmin:
		return nil
	case domain.UserRolePatient:
		if booking.PatientID == actor.UserID {
			return nil
		}
	case domain.UserRoleDoctor:
		doctor, err := s.doctorRepo.GetByUserID(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, domain.ErrDoctorNotFound) {
				return domain.ErrForbidden
			}
			return err
		}
		if booking.DoctorID == doctor.ID {
			return nil
		}
	}
	return domain.ErrForbidden
}

// Базовые шрифты PDF не содержат кириллицы, поэтому квитанция печатается
// латиницей, а имена проходят через транслятор кодировки.
func buildReceiptPDF(b *domain.Booking) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Appointment Receipt", false)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "APPOINTMENT RECEIPT")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Receipt No     : MB-%d", b.ID),
		fmt.Sprintf("Issued         : %s", time.Now().Format("2006-01-02 15:04")),
		fmt.Sprintf("Patient        : %s", tr(orDash(b.PatientName))),
		fmt.Sprintf("Doctor         : %s", tr(orDash(b.DoctorName))),
		fmt.Sprintf("Specialization : %s", tr(orDash(b.DoctorSpecialty))),
		fmt.Sprintf("Date           : %s", b.AppointmentDate.Format("2006-01-02")),
		fmt.Sprintf("Time           : %s", b.AppointmentTime),
		fmt.Sprintf("Status         : %s", string(b.Status)),
		fmt.Sprintf("Payment        : %s", string(b.PaymentMethod)),
		fmt.Sprintf("Amount         : %.2f", b.TicketPrice),
	}
	for _, line := range lines {
		pdf.Cell(0, 7, line)
		pdf.Ln(7)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "This receipt confirms the appointment booking. Please arrive 10 minutes before the scheduled time.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("receipt_%d_%s.pdf", b.ID, b.AppointmentDate.Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
