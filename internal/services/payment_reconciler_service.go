package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/onehorn/event-booking-backend/internal/database"
	"github.com/onehorn/event-booking-backend/internal/models"
	"github.com/onehorn/event-booking-backend/pkg/apperror"
	"github.com/sirupsen/logrus"
)

// Razorpay webhook events that mean money was captured
const (
	WebhookPaymentCaptured = "payment.captured"
	WebhookOrderPaid       = "order.paid"
)

// Webhook handling results, also used as metric labels
const (
	WebhookResultSettled   = "settled"
	WebhookResultDuplicate = "duplicate"
	WebhookResultIgnored   = "ignored"
	WebhookResultUnknown   = "unknown_order"
	WebhookResultMismatch  = "amount_mismatch"
)

// RazorpayWebhookEvent is the envelope Razorpay posts to the webhook URL
type RazorpayWebhookEvent struct {
	Entity  string `json:"entity"`
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity RazorpayPaymentEntity `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
	CreatedAt int64 `json:"created_at"`
}

// RazorpayPaymentEntity is the payment object inside a webhook payload
type RazorpayPaymentEntity struct {
	ID        string `json:"id"`
	OrderID   string `json:"order_id"`
	Amount    int64  `json:"amount"` // paise
	Currency  string `json:"currency"`
	Status    string `json:"status"`
	Method    string `json:"method"`
	CreatedAt int64  `json:"created_at"`
}

// WebhookVerifier checks webhook signatures
type WebhookVerifier interface {
	VerifyWebhookSignature(body []byte, signature string) bool
}

// PaymentReconcilerService settles payments from gateway webhooks. It is the
// out-of-band path the coordinator's poller converges on.
type PaymentReconcilerService struct {
	payments   PaymentStore
	bookings   BookingStore
	settlement *SettlementService
	audit      PaymentAuditor
	verifier   WebhookVerifier
	metrics    *Metrics
	logger     *logrus.Logger
}

// NewPaymentReconcilerService creates a webhook reconciler
func NewPaymentReconcilerService(
	payments PaymentStore,
	bookings BookingStore,
	settlement *SettlementService,
	audit PaymentAuditor,
	verifier WebhookVerifier,
	metrics *Metrics,
	logger *logrus.Logger,
) *PaymentReconcilerService {
	return &PaymentReconcilerService{
		payments:   payments,
		bookings:   bookings,
		settlement: settlement,
		audit:      audit,
		verifier:   verifier,
		metrics:    metrics,
		logger:     logger,
	}
}

// HandleWebhook verifies and applies one webhook delivery. Errors are returned
// only when a redelivery could succeed.
func (s *PaymentReconcilerService) HandleWebhook(ctx context.Context, body []byte, signature string) (string, error) {
	if !s.verifier.VerifyWebhookSignature(body, signature) {
		s.logger.Warn("⚠️ Rejected webhook with invalid signature")
		s.metrics.WebhookEvent("unknown", "invalid_signature")
		return "", apperror.Validation("invalid_signature", "webhook signature is invalid")
	}

	var event RazorpayWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		s.metrics.WebhookEvent("unknown", "malformed")
		return "", apperror.Validation("invalid_payload", "webhook payload is not valid JSON")
	}

	result, err := s.apply(ctx, &event)
	if err != nil {
		s.metrics.WebhookEvent(event.Event, "error")
		return "", err
	}
	s.metrics.WebhookEvent(event.Event, result)
	return result, nil
}

func (s *PaymentReconcilerService) apply(ctx context.Context, event *RazorpayWebhookEvent) (string, error) {
	if event.Event != WebhookPaymentCaptured && event.Event != WebhookOrderPaid {
		return WebhookResultIgnored, nil
	}

	entity := event.Payload.Payment.Entity
	log := s.logger.WithFields(logrus.Fields{
		"event":          event.Event,
		"order_id":       entity.OrderID,
		"transaction_id": entity.ID,
	})

	if entity.OrderID == "" || entity.ID == "" {
		log.Warn("Webhook payment has no order or payment id")
		return WebhookResultIgnored, nil
	}

	payment, err := s.payments.GetByGatewayOrderID(ctx, entity.OrderID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			log.Warn("Webhook for unknown gateway order")
			return WebhookResultUnknown, nil
		}
		return "", apperror.Persistence(err, "payment lookup failed")
	}

	booking, err := s.bookings.GetByID(ctx, payment.BookingID)
	if err != nil {
		return "", storeError(err, "booking", "booking lookup failed")
	}

	if entity.Amount != payment.Amount.Paise() {
		log.WithFields(logrus.Fields{
			"expected": payment.Amount.Paise(),
			"received": entity.Amount,
		}).Error("CRITICAL: Webhook amount does not match payment row")

		entry := models.NewPaymentAudit(models.AuditPaymentVerificationFailed, payment.ID, booking.UserID).
			SetStage(payment.Stage, payment.Amount).
			SetBooking(booking.ID, booking.PackageName).
			SetGatewayReference(entity.ID, entity.OrderID).
			SetSource(models.AuditSourceWebhook).
			SetError("captured amount does not match payment").
			SetDetail("captured_amount", entity.Amount)
		if err := s.audit.Log(ctx, entry); err != nil {
			log.WithError(err).Error("Failed to audit webhook amount mismatch")
		}
		return WebhookResultMismatch, nil
	}

	paidAt := time.Now().UTC()
	if entity.CreatedAt > 0 {
		paidAt = time.Unix(entity.CreatedAt, 0).UTC()
	}

	_, transitioned, err := s.settlement.Settle(ctx, booking, payment, models.Settlement{
		TransactionID: entity.ID,
		OrderID:       entity.OrderID,
		PaymentMethod: entity.Method,
		PaidAt:        paidAt,
	}, models.AuditSourceWebhook)
	if err != nil {
		log.WithError(err).Error("Failed to settle payment from webhook")
		return "", apperror.Persistence(err, "payment could not be recorded")
	}

	if !transitioned {
		return WebhookResultDuplicate, nil
	}
	return WebhookResultSettled, nil
}
