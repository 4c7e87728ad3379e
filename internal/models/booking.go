package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BookingStatus represents the lifecycle state of a booking
type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusConfirmed  BookingStatus = "confirmed"
	BookingStatusInProgress BookingStatus = "in-progress"
	BookingStatusCompleted  BookingStatus = "completed"
)

// ParseBookingStatus validates a booking status
func ParseBookingStatus(s string) (BookingStatus, error) {
	switch BookingStatus(s) {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusInProgress, BookingStatusCompleted:
		return BookingStatus(s), nil
	}
	return "", fmt.Errorf("unknown booking status %q", s)
}

// DateLayout is the calendar-date format used for event dates
const DateLayout = "2006-01-02"

// Date is a calendar date without a time component
type Date struct {
	time.Time
}

// ParseDate parses a YYYY-MM-DD date
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// MarshalJSON encodes the date as "YYYY-MM-DD"
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// EventDetails is the form data collected on the booking page
type EventDetails struct {
	Name                string `json:"name" validate:"required,max=200"`
	Email               string `json:"email" validate:"required,email"`
	Phone               string `json:"phone" validate:"required,event_phone"`
	EventDate           string `json:"event_date" validate:"required,event_date"`
	GuestCount          int    `json:"guest_count" validate:"required,min=1,max=100000"`
	Location            string `json:"location" validate:"required,max=500"`
	EventDuration       string `json:"event_duration" validate:"required,max=100"`
	SpecialRequirements string `json:"special_requirements,omitempty" validate:"max=5000"`
}

// Booking is a customer's reservation of a catalog package
type Booking struct {
	ID          uuid.UUID     `json:"id"`
	UserID      uuid.UUID     `json:"user_id"`
	PackageName string        `json:"package_name"`
	TotalAmount Money         `json:"total_amount"`
	EventDate   Date          `json:"event_date"`
	Status      BookingStatus `json:"status"`
	Details     EventDetails  `json:"event_details"`
	CreatedAt   time.Time     `json:"created_at"`
	Payments    []Payment     `json:"payments,omitempty"`
}

// PaymentFor returns the booking's payment for a stage, if present
func (b *Booking) PaymentFor(stage PaymentStage) *Payment {
	for i := range b.Payments {
		if b.Payments[i].Stage == stage {
			return &b.Payments[i]
		}
	}
	return nil
}

// CreateBookingRequest is the body of POST /bookings
type CreateBookingRequest struct {
	PackageName string       `json:"package_name" binding:"required"`
	Details     EventDetails `json:"event_details"`
}

// CreateBookingResponse returns the new booking with the navigation context for the initial payment
type CreateBookingResponse struct {
	Booking        *Booking        `json:"booking"`
	InitialPayment *Payment        `json:"initial_payment"`
	Next           *PaymentContext `json:"next"`
}
