package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/onehorn/event-booking-backend/internal/database"
	"github.com/onehorn/event-booking-backend/internal/models"
	"github.com/onehorn/event-booking-backend/pkg/apperror"
)

// BookingStore is implemented by database.BookingRepository
type BookingStore interface {
	Create(ctx context.Context, booking *models.Booking) (*models.Booking, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Booking, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.BookingStatus) (bool, error)
}

// PaymentStore is implemented by database.PaymentRepository
type PaymentStore interface {
	Ensure(ctx context.Context, bookingID uuid.UUID, stage models.PaymentStage, amount models.Money) (*models.Payment, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	GetByBookingStage(ctx context.Context, bookingID uuid.UUID, stage models.PaymentStage) (*models.Payment, error)
	GetByGatewayOrderID(ctx context.Context, orderID string) (*models.Payment, error)
	SetGatewayOrderID(ctx context.Context, id uuid.UUID, orderID string) error
	MarkPaid(ctx context.Context, id uuid.UUID, settlement models.Settlement) (*models.Payment, bool, error)
}

// PaymentAuditor appends to the payment audit trail
type PaymentAuditor interface {
	Log(ctx context.Context, entry *models.PaymentAuditEntry) error
}

// UserStore is implemented by database.UserRepository
type UserStore interface {
	CreateUser(ctx context.Context, email, passwordHash string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error
	EnsureProfile(ctx context.Context, profile *models.Profile) (*models.Profile, error)
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, req *models.UpdateProfileRequest) (*models.Profile, error)
}

// RefreshTokenStore is implemented by database.RefreshTokenRepository
type RefreshTokenStore interface {
	Store(ctx context.Context, userID uuid.UUID, token string, client models.ClientInfo, expiresAt time.Time) error
	Get(ctx context.Context, token string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, token string) (bool, error)
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error)
	CleanupExpired(ctx context.Context, retention time.Duration) (int64, error)
}

// AuthAuditor appends to the identity audit trail
type AuthAuditor interface {
	Log(ctx context.Context, entry *models.AuthAuditEntry) error
}

// QuoteStore is implemented by database.CustomQuoteRepository
type QuoteStore interface {
	Create(ctx context.Context, quote *models.CustomQuote) (*models.CustomQuote, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CustomQuote, error)
}

// EventPublisher publishes domain events. mq.Publisher and mq.Discard implement it.
type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// storeError maps a repository error onto the application taxonomy
func storeError(err error, resource, message string) error {
	if errors.Is(err, database.ErrNotFound) {
		return apperror.NotFound(resource)
	}
	return apperror.Persistence(err, message)
}
