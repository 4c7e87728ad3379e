package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PaymentStage identifies one of the three installments of a booking
type PaymentStage string

const (
	StageInitial    PaymentStage = "initial"
	StageProgress   PaymentStage = "progress"
	StageCompletion PaymentStage = "completion"
)

// PaymentStages lists the stages in schedule order
var PaymentStages = []PaymentStage{StageInitial, StageProgress, StageCompletion}

// ParsePaymentStage validates a stage name
func ParsePaymentStage(s string) (PaymentStage, error) {
	switch PaymentStage(s) {
	case StageInitial, StageProgress, StageCompletion:
		return PaymentStage(s), nil
	}
	return "", fmt.Errorf("unknown payment stage %q", s)
}

// Label returns the user-facing name of the stage
func (s PaymentStage) Label() string {
	switch s {
	case StageInitial:
		return "Initial Payment"
	case StageProgress:
		return "Progress Payment"
	case StageCompletion:
		return "Final Payment"
	}
	return string(s)
}

// PaymentStatus represents the settlement state of a payment row
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// ParsePaymentStatus validates a payment status
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch PaymentStatus(s) {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed:
		return PaymentStatus(s), nil
	}
	return "", fmt.Errorf("unknown payment status %q", s)
}

// Payment is the single payment record for a (booking, stage) pair
type Payment struct {
	ID             uuid.UUID     `json:"id"`
	BookingID      uuid.UUID     `json:"booking_id"`
	Stage          PaymentStage  `json:"stage"`
	Amount         Money         `json:"amount"`
	Status         PaymentStatus `json:"status"`
	PaymentDate    *time.Time    `json:"payment_date,omitempty"`
	PaymentMethod  *string       `json:"payment_method,omitempty"`
	TransactionID  *string       `json:"transaction_id,omitempty"`
	GatewayOrderID *string       `json:"gateway_order_id,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

// IsPaid reports whether the payment has settled
func (p *Payment) IsPaid() bool {
	return p != nil && p.Status == PaymentStatusPaid
}

// Settlement carries the gateway reference recorded when a payment is marked paid
type Settlement struct {
	TransactionID string
	OrderID       string
	PaymentMethod string
	PaidAt        time.Time
}
