package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentContext is handed from the booking step to the payment step.
// All four fields must be present for a payment attempt to begin.
type PaymentContext struct {
	BookingID   string `json:"booking_id"`
	Stage       string `json:"stage"`
	Amount      *Money `json:"amount"`
	PackageName string `json:"package_name"`
}

// MissingFields lists the names of absent fields
func (c PaymentContext) MissingFields() []string {
	var missing []string
	if c.BookingID == "" {
		missing = append(missing, "booking_id")
	}
	if c.Stage == "" {
		missing = append(missing, "stage")
	}
	if c.Amount == nil {
		missing = append(missing, "amount")
	}
	if c.PackageName == "" {
		missing = append(missing, "package_name")
	}
	return missing
}

// AttemptState is the coordinator's view of one payment attempt
type AttemptState string

const (
	AttemptIdle            AttemptState = "idle"
	AttemptAwaitingGateway AttemptState = "awaiting_gateway"
	AttemptReconciling     AttemptState = "reconciling"
	AttemptSettled         AttemptState = "settled"
	AttemptFailed          AttemptState = "failed"
	AttemptCancelled       AttemptState = "cancelled"
)

// IsTerminal reports whether no further transitions are expected.
// A failed attempt is terminal for the user, but may still converge to settled
// if the payment is reconciled out of band.
func (s AttemptState) IsTerminal() bool {
	return s == AttemptSettled || s == AttemptFailed || s == AttemptCancelled
}

// CheckoutSession is what the browser needs to open the gateway modal
type CheckoutSession struct {
	OrderID     string            `json:"order_id"`
	KeyID       string            `json:"key"`
	AmountMinor int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Prefill     CheckoutPrefill   `json:"prefill"`
	Notes       map[string]string `json:"notes,omitempty"`
}

// CheckoutPrefill carries customer contact details into the gateway modal
type CheckoutPrefill struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Contact string `json:"contact,omitempty"`
}

// GatewayReference is returned by the gateway on a successful payment
type GatewayReference struct {
	PaymentID string `json:"razorpay_payment_id" binding:"required"`
	OrderID   string `json:"razorpay_order_id" binding:"required"`
	Signature string `json:"razorpay_signature" binding:"required"`
}

// GatewayFailure is reported by the browser when the gateway rejects a payment
type GatewayFailure struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Reason      string `json:"reason,omitempty"`
}

// AttemptSnapshot is a read-only view of a payment attempt
type AttemptSnapshot struct {
	ID              uuid.UUID        `json:"id"`
	BookingID       uuid.UUID        `json:"booking_id"`
	Stage           PaymentStage     `json:"stage"`
	Amount          Money            `json:"amount"`
	PackageName     string           `json:"package_name"`
	PaymentID       uuid.UUID        `json:"payment_id"`
	State           AttemptState     `json:"state"`
	ErrorKind       string           `json:"error_kind,omitempty"`
	Message         string           `json:"message,omitempty"`
	Checkout        *CheckoutSession `json:"checkout,omitempty"`
	RedirectTo      string           `json:"redirect_to,omitempty"`
	RedirectAfterMs int64            `json:"redirect_after_ms,omitempty"`
	StartedAt       time.Time        `json:"started_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}
