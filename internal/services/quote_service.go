package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/onehorn/event-booking-backend/internal/models"
	"github.com/onehorn/event-booking-backend/pkg/apperror"
	"github.com/onehorn/event-booking-backend/pkg/validator"
	"github.com/sirupsen/logrus"
)

// QuoteService stores custom quote requests for events outside the catalog
type QuoteService struct {
	quotes    QuoteStore
	validator *validator.StructValidator
	logger    *logrus.Logger
}

// NewQuoteService creates a new quote service
func NewQuoteService(quotes QuoteStore, v *validator.StructValidator, logger *logrus.Logger) *QuoteService {
	return &QuoteService{quotes: quotes, validator: v, logger: logger}
}

// SubmitQuote validates and stores a quote request. userID may be nil for guests.
func (s *QuoteService) SubmitQuote(ctx context.Context, userID *uuid.UUID, in *models.QuoteRequest) (*models.CustomQuote, error) {
	req := normalizeQuote(in)
	if err := s.validator.Validate(req); err != nil {
		var fieldErrs validator.FieldErrors
		if errors.As(err, &fieldErrs) {
			return nil, apperror.Validation("invalid_quote_request", "please correct the highlighted fields").
				WithDetail("fields", fieldErrs.Fields())
		}
		return nil, apperror.Internal(err)
	}

	eventDate, err := models.ParseDate(req.EventDate)
	if err != nil {
		return nil, apperror.Validation("invalid_quote_request", "please correct the highlighted fields").
			WithDetail("fields", map[string]any{"event_date": err.Error()})
	}

	quote := &models.CustomQuote{
		UserID:                 userID,
		Name:                   req.Name,
		Email:                  req.Email,
		Phone:                  req.Phone,
		EventType:              req.EventType,
		EventDate:              eventDate.Time,
		GuestCount:             req.GuestCount,
		Budget:                 req.Budget,
		Location:               req.Location,
		VenueType:              req.VenueType,
		Duration:               req.Duration,
		Services:               models.StringArray(req.Services),
		AdditionalRequirements: req.AdditionalRequirements,
		Status:                 models.QuoteStatusPending,
	}
	if req.EventType == models.EventTypeOther {
		custom := req.CustomEventType
		quote.CustomEventType = &custom
	}

	stored, err := s.quotes.Create(ctx, quote)
	if err != nil {
		s.logger.WithError(err).Error("Failed to store quote request")
		return nil, apperror.Persistence(err, "your quote request could not be sent, please try again")
	}

	s.logger.WithFields(logrus.Fields{
		"quote_id":   stored.ID,
		"event_type": stored.EventType,
	}).Info("Quote request received")
	return stored, nil
}

// ListQuotes returns the user's quote requests
func (s *QuoteService) ListQuotes(ctx context.Context, userID uuid.UUID) ([]models.CustomQuote, error) {
	quotes, err := s.quotes.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperror.Persistence(err, "your quote requests could not be loaded")
	}
	return quotes, nil
}

// normalizeQuote trims the free-text fields so validation sees what gets stored
func normalizeQuote(in *models.QuoteRequest) *models.QuoteRequest {
	req := *in
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Phone = strings.TrimSpace(req.Phone)
	req.EventType = strings.TrimSpace(req.EventType)
	req.CustomEventType = strings.TrimSpace(req.CustomEventType)
	req.EventDate = strings.TrimSpace(req.EventDate)
	req.Location = strings.TrimSpace(req.Location)
	req.AdditionalRequirements = strings.TrimSpace(req.AdditionalRequirements)
	req.Services = dedupe(req.Services)
	return &req
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
