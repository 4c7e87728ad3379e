package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentAuditAction is the kind of event recorded in the payment audit trail
type PaymentAuditAction string

const (
	AuditBookingCreated            PaymentAuditAction = "booking_created"
	AuditPaymentSuccess            PaymentAuditAction = "payment_success"
	AuditPaymentVerificationFailed PaymentAuditAction = "payment_verification_failed"
	AuditPaymentCancelled          PaymentAuditAction = "payment_cancelled"
	AuditPaymentFailed             PaymentAuditAction = "payment_failed"
)

// PaymentAuditSource identifies where the event originated
type PaymentAuditSource string

const (
	AuditSourceCheckout PaymentAuditSource = "checkout"
	AuditSourceWebhook  PaymentAuditSource = "razorpay_webhook"
	AuditSourceSystem   PaymentAuditSource = "system"
)

// PaymentAuditEntry is an immutable, append-only record of a payment event
type PaymentAuditEntry struct {
	ID        uuid.UUID          `json:"id" db:"id"`
	PaymentID uuid.UUID          `json:"payment_id" db:"payment_id"`
	UserID    uuid.UUID          `json:"user_id" db:"user_id"`
	Action    PaymentAuditAction `json:"action" db:"action"`
	Details   JSONB              `json:"details" db:"details"`
	CreatedAt time.Time          `json:"created_at" db:"created_at"`
}

// NewPaymentAudit creates a new payment audit entry with required fields
func NewPaymentAudit(action PaymentAuditAction, paymentID, userID uuid.UUID) *PaymentAuditEntry {
	return &PaymentAuditEntry{
		ID:        uuid.New(),
		PaymentID: paymentID,
		UserID:    userID,
		Action:    action,
		Details:   JSONB{},
		CreatedAt: time.Now(),
	}
}

// SetStage records the stage and amount involved
func (e *PaymentAuditEntry) SetStage(stage PaymentStage, amount Money) *PaymentAuditEntry {
	e.Details["stage"] = string(stage)
	e.Details["amount"] = amount.String()
	return e
}

// SetBooking records the booking and package the payment belongs to
func (e *PaymentAuditEntry) SetBooking(bookingID uuid.UUID, packageName string) *PaymentAuditEntry {
	e.Details["booking_id"] = bookingID.String()
	if packageName != "" {
		e.Details["package_name"] = packageName
	}
	return e
}

// SetGatewayReference records the gateway identifiers of a payment
func (e *PaymentAuditEntry) SetGatewayReference(transactionID, orderID string) *PaymentAuditEntry {
	if transactionID != "" {
		e.Details["transaction_id"] = transactionID
	}
	if orderID != "" {
		e.Details["order_id"] = orderID
	}
	return e
}

// SetSource records which path produced the event
func (e *PaymentAuditEntry) SetSource(source PaymentAuditSource) *PaymentAuditEntry {
	e.Details["source"] = string(source)
	return e
}

// SetError records a failure reason
func (e *PaymentAuditEntry) SetError(message string) *PaymentAuditEntry {
	e.Details["error"] = message
	return e
}

// SetDetail sets an arbitrary detail key
func (e *PaymentAuditEntry) SetDetail(key string, value interface{}) *PaymentAuditEntry {
	e.Details[key] = value
	return e
}
