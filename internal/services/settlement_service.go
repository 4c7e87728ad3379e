package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/onehorn/event-booking-backend/internal/models"
	"github.com/onehorn/event-booking-backend/pkg/mq"
	"github.com/onehorn/event-booking-backend/pkg/obs"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// BookingStatusPolicy decides how a settled stage moves its booking
type BookingStatusPolicy interface {
	// Transition returns the booking status change caused by settling stage, if any
	Transition(stage models.PaymentStage) (from, to models.BookingStatus, ok bool)
}

// InitialStageConfirms confirms a pending booking once its initial payment settles.
// Later stages leave the booking status alone.
type InitialStageConfirms struct{}

func (InitialStageConfirms) Transition(stage models.PaymentStage) (models.BookingStatus, models.BookingStatus, bool) {
	if stage == models.StageInitial {
		return models.BookingStatusPending, models.BookingStatusConfirmed, true
	}
	return "", "", false
}

// PaymentSettledEvent is published when a payment row becomes paid
type PaymentSettledEvent struct {
	PaymentID     uuid.UUID           `json:"payment_id"`
	BookingID     uuid.UUID           `json:"booking_id"`
	UserID        uuid.UUID           `json:"user_id"`
	Stage         models.PaymentStage `json:"stage"`
	Amount        models.Money        `json:"amount"`
	TransactionID string              `json:"transaction_id"`
	Source        string              `json:"source"`
	PaidAt        time.Time           `json:"paid_at"`
}

// SettlementService records gateway successes against payment rows.
// It is shared by the checkout path and the webhook path so both settle the same way.
type SettlementService struct {
	payments PaymentStore
	bookings BookingStore
	audit    PaymentAuditor
	policy   BookingStatusPolicy
	events   EventPublisher
	metrics  *Metrics
	logger   *logrus.Logger
}

// NewSettlementService creates a settlement service. A nil policy means InitialStageConfirms.
func NewSettlementService(
	payments PaymentStore,
	bookings BookingStore,
	audit PaymentAuditor,
	policy BookingStatusPolicy,
	events EventPublisher,
	metrics *Metrics,
	logger *logrus.Logger,
) *SettlementService {
	if policy == nil {
		policy = InitialStageConfirms{}
	}
	if events == nil {
		events = mq.Discard{}
	}
	return &SettlementService{
		payments: payments,
		bookings: bookings,
		audit:    audit,
		policy:   policy,
		events:   events,
		metrics:  metrics,
		logger:   logger,
	}
}

// Settle marks the payment paid and applies the booking status policy.
// It reports whether this call performed the paid transition. Settling an
// already-paid row only re-applies the booking update, which is idempotent.
func (s *SettlementService) Settle(
	ctx context.Context,
	booking *models.Booking,
	payment *models.Payment,
	settlement models.Settlement,
	source models.PaymentAuditSource,
) (*models.Payment, bool, error) {
	ctx, span := obs.Tracer().Start(ctx, "payment.settle")
	defer span.End()
	span.SetAttributes(
		attribute.String("booking.id", booking.ID.String()),
		attribute.String("payment.stage", string(payment.Stage)),
		attribute.String("payment.source", string(source)),
	)

	if settlement.PaidAt.IsZero() {
		settlement.PaidAt = time.Now().UTC()
	}
	if settlement.PaymentMethod == "" {
		settlement.PaymentMethod = "card"
	}

	paid, transitioned, err := s.payments.MarkPaid(ctx, payment.ID, settlement)
	if err != nil {
		span.RecordError(err)
		return nil, false, err
	}

	if transitioned {
		s.recordSettled(ctx, booking, paid, settlement, source)
	}

	if err := s.ApplyBookingStatus(ctx, booking.ID, paid.Stage); err != nil {
		span.RecordError(err)
		return paid, transitioned, err
	}
	return paid, transitioned, nil
}

func (s *SettlementService) recordSettled(
	ctx context.Context,
	booking *models.Booking,
	paid *models.Payment,
	settlement models.Settlement,
	source models.PaymentAuditSource,
) {
	entry := models.NewPaymentAudit(models.AuditPaymentSuccess, paid.ID, booking.UserID).
		SetStage(paid.Stage, paid.Amount).
		SetBooking(booking.ID, booking.PackageName).
		SetGatewayReference(settlement.TransactionID, settlement.OrderID).
		SetSource(source).
		SetDetail("payment_method", settlement.PaymentMethod)
	if err := s.audit.Log(ctx, entry); err != nil {
		s.logger.WithError(err).WithField("payment_id", paid.ID).Error("Failed to audit payment success")
	}

	event := PaymentSettledEvent{
		PaymentID:     paid.ID,
		BookingID:     booking.ID,
		UserID:        booking.UserID,
		Stage:         paid.Stage,
		Amount:        paid.Amount,
		TransactionID: settlement.TransactionID,
		Source:        string(source),
		PaidAt:        settlement.PaidAt,
	}
	if err := s.events.PublishJSON(ctx, mq.KeyPaymentSettled, event); err != nil {
		s.logger.WithError(err).WithField("payment_id", paid.ID).Warn("Failed to publish payment.settled")
	}

	s.logger.WithFields(logrus.Fields{
		"payment_id":     paid.ID,
		"booking_id":     booking.ID,
		"stage":          paid.Stage,
		"transaction_id": settlement.TransactionID,
		"source":         source,
	}).Info("✅ Payment settled")
}

// ApplyBookingStatus performs the policy's conditional status update, if any.
// A booking that already moved on is left as is.
func (s *SettlementService) ApplyBookingStatus(ctx context.Context, bookingID uuid.UUID, stage models.PaymentStage) error {
	from, to, ok := s.policy.Transition(stage)
	if !ok {
		return nil
	}
	updated, err := s.bookings.UpdateStatus(ctx, bookingID, from, to)
	if err != nil {
		return err
	}
	if updated {
		s.logger.WithFields(logrus.Fields{
			"booking_id": bookingID,
			"from":       from,
			"to":         to,
		}).Info("Booking status updated")
	}
	return nil
}
