package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/onehorn/event-booking-backend/internal/catalog"
	"github.com/onehorn/event-booking-backend/internal/models"
	"github.com/onehorn/event-booking-backend/pkg/apperror"
	"github.com/sirupsen/logrus"
)

// StatusProjectorService builds the dashboard view of a user's bookings.
// It reads on every call and writes nothing.
type StatusProjectorService struct {
	bookings BookingStore
	logger   *logrus.Logger
}

// NewStatusProjectorService creates a new projector
func NewStatusProjectorService(bookings BookingStore, logger *logrus.Logger) *StatusProjectorService {
	return &StatusProjectorService{bookings: bookings, logger: logger}
}

// Project returns the user's bookings, newest first, each with its three-stage schedule
func (s *StatusProjectorService) Project(ctx context.Context, userID uuid.UUID) ([]models.BookingSchedule, error) {
	if userID == uuid.Nil {
		return nil, apperror.AuthRequired("sign in to view your bookings")
	}

	bookings, err := s.bookings.ListByUser(ctx, userID)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Error("Failed to list bookings")
		return nil, apperror.Persistence(err, "your bookings could not be loaded, please try again")
	}

	out := make([]models.BookingSchedule, 0, len(bookings))
	for i := range bookings {
		out = append(out, ProjectBooking(&bookings[i]))
	}
	return out, nil
}

// ProjectBooking derives the schedule of one booking from its payment rows.
// A stage is paid only when a row for it has status paid; otherwise it is
// payable for its computed share of the total, whatever a pending row says.
func ProjectBooking(b *models.Booking) models.BookingSchedule {
	breakdown := catalog.Breakdown(b.TotalAmount)
	stages := make([]models.StageView, 0, len(models.PaymentStages))

	for _, stage := range models.PaymentStages {
		view := models.StageView{
			Stage:   stage,
			Label:   stage.Label(),
			Percent: catalog.StagePercent(stage),
			Amount:  breakdown.Amount(stage),
		}
		if p := paidPayment(b.Payments, stage); p != nil {
			id := p.ID
			view.Paid = true
			view.PaymentID = &id
			view.PaymentDate = p.PaymentDate
		} else {
			view.Payable = true
		}
		stages = append(stages, view)
	}

	return models.BookingSchedule{Booking: b, Stages: stages}
}

func paidPayment(payments []models.Payment, stage models.PaymentStage) *models.Payment {
	for i := range payments {
		if payments[i].Stage == stage && payments[i].IsPaid() {
			return &payments[i]
		}
	}
	return nil
}
