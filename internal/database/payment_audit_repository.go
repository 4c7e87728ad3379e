package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/onehorn/event-booking-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// PaymentAuditRepository appends to payment_audit_log. Rows are never updated or read back.
type PaymentAuditRepository struct {
	db     DB
	logger *logrus.Logger
}

// NewPaymentAuditRepository creates a new payment audit repository
func NewPaymentAuditRepository(db DB, logger *logrus.Logger) *PaymentAuditRepository {
	return &PaymentAuditRepository{
		db:     db,
		logger: logger,
	}
}

// Log appends a payment audit entry
func (r *PaymentAuditRepository) Log(ctx context.Context, entry *models.PaymentAuditEntry) error {
	if entry == nil {
		return fmt.Errorf("audit entry cannot be nil")
	}

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO payment_audit_log (id, payment_id, user_id, action, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.PaymentID,
		entry.UserID,
		string(entry.Action),
		entry.Details,
		entry.CreatedAt,
	)
	if err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"action":     entry.Action,
			"payment_id": entry.PaymentID,
		}).Error("CRITICAL: Failed to write payment audit entry")
		return fmt.Errorf("failed to log payment audit: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"audit_id":   entry.ID,
		"action":     entry.Action,
		"payment_id": entry.PaymentID,
	}).Debug("Payment audit logged")

	return nil
}
