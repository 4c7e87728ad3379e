package models

import (
	"time"

	"github.com/google/uuid"
)

// StageView is one row of a booking's payment schedule
type StageView struct {
	Stage       PaymentStage `json:"stage"`
	Label       string       `json:"label"`
	Percent     int          `json:"percent"`
	Amount      Money        `json:"amount"`
	Paid        bool         `json:"paid"`
	Payable     bool         `json:"payable"`
	PaymentID   *uuid.UUID   `json:"payment_id,omitempty"`
	PaymentDate *time.Time   `json:"payment_date,omitempty"`
}

// BookingSchedule is a booking together with its derived three-stage schedule
type BookingSchedule struct {
	Booking *Booking    `json:"booking"`
	Stages  []StageView `json:"stages"`
}
