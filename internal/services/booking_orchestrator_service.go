package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/onehorn/event-booking-backend/internal/catalog"
	"github.com/onehorn/event-booking-backend/internal/models"
	"github.com/onehorn/event-booking-backend/pkg/apperror"
	"github.com/onehorn/event-booking-backend/pkg/mq"
	"github.com/onehorn/event-booking-backend/pkg/obs"
	"github.com/onehorn/event-booking-backend/pkg/validator"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// BookingCreatedEvent is published after a booking and its initial payment exist
type BookingCreatedEvent struct {
	BookingID     uuid.UUID    `json:"booking_id"`
	UserID        uuid.UUID    `json:"user_id"`
	PackageName   string       `json:"package_name"`
	TotalAmount   models.Money `json:"total_amount"`
	InitialAmount models.Money `json:"initial_amount"`
	EventDate     string       `json:"event_date"`
	CreatedAt     time.Time    `json:"created_at"`
}

// BookingOrchestratorService turns a package selection and event form into a
// pending booking with its initial payment row
type BookingOrchestratorService struct {
	bookings  BookingStore
	payments  PaymentStore
	audit     PaymentAuditor
	validator *validator.StructValidator
	events    EventPublisher
	metrics   *Metrics
	logger    *logrus.Logger
}

// NewBookingOrchestratorService creates a new orchestrator service
func NewBookingOrchestratorService(
	bookings BookingStore,
	payments PaymentStore,
	audit PaymentAuditor,
	v *validator.StructValidator,
	events EventPublisher,
	metrics *Metrics,
	logger *logrus.Logger,
) *BookingOrchestratorService {
	if events == nil {
		events = mq.Discard{}
	}
	return &BookingOrchestratorService{
		bookings:  bookings,
		payments:  payments,
		audit:     audit,
		validator: v,
		events:    events,
		metrics:   metrics,
		logger:    logger,
	}
}

// ============================================================================
// CREATE BOOKING
// ============================================================================

// CreateBooking validates the request, stores a pending booking and ensures its
// initial payment row. On success the response carries the payment context for
// the next navigation step.
func (s *BookingOrchestratorService) CreateBooking(
	ctx context.Context,
	userID uuid.UUID,
	req *models.CreateBookingRequest,
) (*models.CreateBookingResponse, error) {
	ctx, span := obs.Tracer().Start(ctx, "booking.create")
	defer span.End()

	if userID == uuid.Nil {
		return nil, apperror.AuthRequired("sign in to book a package").
			WithDetail("resume", map[string]any{"package_name": req.PackageName})
	}

	// 1. Validate package and event details before any write
	pkg, ok := catalog.Find(req.PackageName)
	if !ok {
		return nil, apperror.Validation("unknown_package", "the selected package does not exist").
			WithDetail("fields", map[string]any{"package_name": "unknown package"})
	}
	if err := s.validator.Validate(req.Details); err != nil {
		var fieldErrs validator.FieldErrors
		if errors.As(err, &fieldErrs) {
			return nil, apperror.Validation("invalid_event_details", "please correct the highlighted fields").
				WithDetail("fields", fieldErrs.Fields())
		}
		return nil, apperror.Internal(err)
	}
	eventDate, err := models.ParseDate(req.Details.EventDate)
	if err != nil {
		return nil, apperror.Validation("invalid_event_details", "please correct the highlighted fields").
			WithDetail("fields", map[string]any{"event_date": err.Error()})
	}

	span.SetAttributes(attribute.String("booking.package", pkg.Name))

	// 2. Store the booking
	booking, err := s.bookings.Create(ctx, &models.Booking{
		UserID:      userID,
		PackageName: pkg.Name,
		TotalAmount: pkg.Total(),
		EventDate:   eventDate,
		Status:      models.BookingStatusPending,
		Details:     req.Details,
	})
	if err != nil {
		span.RecordError(err)
		s.logger.WithError(err).WithField("user_id", userID).Error("Failed to create booking")
		return nil, apperror.Persistence(err, "your booking could not be saved, please try again")
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"user_id":    userID,
		"package":    booking.PackageName,
		"total":      booking.TotalAmount.String(),
	}).Info("Booking created")
	s.metrics.BookingCreated()

	// 3. Ensure the initial payment row
	payment, err := s.ensureInitialPayment(ctx, booking)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.publishCreated(ctx, booking, payment)

	return bookingResponse(booking, payment), nil
}

// EnsureInitialPayment retries the initial payment row for an existing booking.
// It never creates a second booking.
func (s *BookingOrchestratorService) EnsureInitialPayment(
	ctx context.Context,
	userID uuid.UUID,
	bookingID uuid.UUID,
) (*models.CreateBookingResponse, error) {
	ctx, span := obs.Tracer().Start(ctx, "booking.ensure_initial_payment")
	defer span.End()

	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, storeError(err, "booking", "booking could not be loaded, please try again")
	}
	if booking.UserID != userID {
		return nil, apperror.NotFound("booking")
	}

	payment, err := s.ensureInitialPayment(ctx, booking)
	if err != nil {
		return nil, err
	}
	return bookingResponse(booking, payment), nil
}

func (s *BookingOrchestratorService) ensureInitialPayment(ctx context.Context, booking *models.Booking) (*models.Payment, error) {
	amount, err := catalog.StageAmount(booking.TotalAmount, models.StageInitial)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	payment, created, err := s.payments.Ensure(ctx, booking.ID, models.StageInitial, amount)
	if err != nil {
		s.logger.WithError(err).WithField("booking_id", booking.ID).Error("Failed to create initial payment")
		appErr := apperror.Persistence(err, "your booking was saved but its payment could not be prepared, please retry")
		appErr.Code = "booking_not_payable"
		return nil, appErr.WithDetail("booking_id", booking.ID.String())
	}

	if created {
		entry := models.NewPaymentAudit(models.AuditBookingCreated, payment.ID, booking.UserID).
			SetStage(models.StageInitial, amount).
			SetBooking(booking.ID, booking.PackageName).
			SetSource(models.AuditSourceCheckout)
		if err := s.audit.Log(ctx, entry); err != nil {
			s.logger.WithError(err).WithField("booking_id", booking.ID).Warn("Failed to audit booking creation")
		}
	}

	return payment, nil
}

func (s *BookingOrchestratorService) publishCreated(ctx context.Context, booking *models.Booking, payment *models.Payment) {
	event := BookingCreatedEvent{
		BookingID:     booking.ID,
		UserID:        booking.UserID,
		PackageName:   booking.PackageName,
		TotalAmount:   booking.TotalAmount,
		InitialAmount: payment.Amount,
		EventDate:     booking.EventDate.String(),
		CreatedAt:     booking.CreatedAt,
	}
	if err := s.events.PublishJSON(ctx, mq.KeyBookingCreated, event); err != nil {
		s.logger.WithError(err).WithField("booking_id", booking.ID).Warn("Failed to publish booking.created")
	}
}

func bookingResponse(booking *models.Booking, payment *models.Payment) *models.CreateBookingResponse {
	amount := payment.Amount
	return &models.CreateBookingResponse{
		Booking:        booking,
		InitialPayment: payment,
		Next: &models.PaymentContext{
			BookingID:   booking.ID.String(),
			Stage:       string(models.StageInitial),
			Amount:      &amount,
			PackageName: booking.PackageName,
		},
	}
}
