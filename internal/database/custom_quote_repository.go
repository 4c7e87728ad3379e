package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/onehorn/event-booking-backend/internal/models"
)

const quoteColumns = `id, user_id, name, email, phone, event_type, custom_event_type, event_date,
	guest_count, budget, location, venue_type, duration, services, additional_requirements, status, created_at`

// CustomQuoteRepository stores custom quote requests
type CustomQuoteRepository struct {
	db DB
}

// NewCustomQuoteRepository creates a new custom quote repository
func NewCustomQuoteRepository(db DB) *CustomQuoteRepository {
	return &CustomQuoteRepository{db: db}
}

// Create inserts a quote request and returns the stored row
func (r *CustomQuoteRepository) Create(ctx context.Context, q *models.CustomQuote) (*models.CustomQuote, error) {
	query := `
		INSERT INTO custom_quotes (
			user_id, name, email, phone, event_type, custom_event_type, event_date,
			guest_count, budget, location, venue_type, duration, services,
			additional_requirements, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING ` + quoteColumns

	var stored models.CustomQuote
	err := r.db.GetContext(ctx, &stored, query,
		q.UserID,
		q.Name,
		q.Email,
		q.Phone,
		q.EventType,
		q.CustomEventType,
		q.EventDate,
		q.GuestCount,
		q.Budget,
		q.Location,
		q.VenueType,
		q.Duration,
		q.Services,
		q.AdditionalRequirements,
		string(q.Status),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create custom quote: %w", err)
	}

	return &stored, nil
}

// ListByUser returns a user's quote requests newest first
func (r *CustomQuoteRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CustomQuote, error) {
	query := `SELECT ` + quoteColumns + ` FROM custom_quotes WHERE user_id = $1 ORDER BY created_at DESC`

	quotes := []models.CustomQuote{}
	if err := r.db.SelectContext(ctx, &quotes, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list custom quotes: %w", err)
	}

	return quotes, nil
}
