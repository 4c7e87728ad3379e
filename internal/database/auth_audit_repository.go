package database

import (
	"context"
	"fmt"

	"github.com/onehorn/event-booking-backend/internal/models"
)

// AuthAuditRepository appends identity events to auth_audit_log
type AuthAuditRepository struct {
	db DB
}

// NewAuthAuditRepository creates a new auth audit repository
func NewAuthAuditRepository(db DB) *AuthAuditRepository {
	return &AuthAuditRepository{db: db}
}

// Log writes one auth audit row
func (r *AuthAuditRepository) Log(ctx context.Context, entry *models.AuthAuditEntry) error {
	query := `
		INSERT INTO auth_audit_log (user_id, event_type, ip_address, user_agent, details, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.UserID,
		string(entry.EventType),
		nullIfEmpty(entry.IPAddress),
		nullIfEmpty(entry.UserAgent),
		entry.Details,
	)
	if err != nil {
		return fmt.Errorf("failed to log auth audit event: %w", err)
	}

	return nil
}
