package models

import (
	"time"

	"github.com/google/uuid"
)

// QuoteStatus tracks how far a quote request has been handled
type QuoteStatus string

const (
	QuoteStatusPending  QuoteStatus = "pending"
	QuoteStatusReviewed QuoteStatus = "reviewed"
	QuoteStatusQuoted   QuoteStatus = "quoted"
)

// EventTypeOther means the customer described the event type in free text
const EventTypeOther = "Other"

// QuoteRequest is the body of POST /quotes
type QuoteRequest struct {
	Name                   string   `json:"name" validate:"required,max=200"`
	Email                  string   `json:"email" validate:"required,email"`
	Phone                  string   `json:"phone" validate:"required,event_phone"`
	EventType              string   `json:"event_type" validate:"required,max=100"`
	CustomEventType        string   `json:"custom_event_type" validate:"required_if=EventType Other,max=100"`
	EventDate              string   `json:"event_date" validate:"required,event_date"`
	GuestCount             int      `json:"guest_count" validate:"required,min=1,max=100000"`
	Budget                 string   `json:"budget" validate:"required,max=100"`
	Location               string   `json:"location" validate:"required,max=500"`
	VenueType              string   `json:"venue_type" validate:"max=100"`
	Duration               string   `json:"duration" validate:"max=100"`
	Services               []string `json:"services" validate:"dive,max=100"`
	AdditionalRequirements string   `json:"additional_requirements" validate:"max=5000"`
}

// CustomQuote is a stored quote request
type CustomQuote struct {
	ID                     uuid.UUID   `json:"id" db:"id"`
	UserID                 *uuid.UUID  `json:"user_id,omitempty" db:"user_id"`
	Name                   string      `json:"name" db:"name"`
	Email                  string      `json:"email" db:"email"`
	Phone                  string      `json:"phone" db:"phone"`
	EventType              string      `json:"event_type" db:"event_type"`
	CustomEventType        *string     `json:"custom_event_type,omitempty" db:"custom_event_type"`
	EventDate              time.Time   `json:"event_date" db:"event_date"`
	GuestCount             int         `json:"guest_count" db:"guest_count"`
	Budget                 string      `json:"budget" db:"budget"`
	Location               string      `json:"location" db:"location"`
	VenueType              string      `json:"venue_type" db:"venue_type"`
	Duration               string      `json:"duration" db:"duration"`
	Services               StringArray `json:"services" db:"services"`
	AdditionalRequirements string      `json:"additional_requirements" db:"additional_requirements"`
	Status                 QuoteStatus `json:"status" db:"status"`
	CreatedAt              time.Time   `json:"created_at" db:"created_at"`
}
