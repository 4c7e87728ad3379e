package models

import (
	"time"

	"github.com/google/uuid"
)

// AuthEventType is the kind of identity event recorded
type AuthEventType string

const (
	AuthEventSignup         AuthEventType = "signup"
	AuthEventLogin          AuthEventType = "login"
	AuthEventLoginFailed    AuthEventType = "login_failed"
	AuthEventLogout         AuthEventType = "logout"
	AuthEventTokenRefresh   AuthEventType = "token_refresh"
	AuthEventPasswordChange AuthEventType = "password_change"
)

// AuthAuditEntry is a row of auth_audit_log
type AuthAuditEntry struct {
	ID        uuid.UUID     `json:"id" db:"id"`
	UserID    *uuid.UUID    `json:"user_id,omitempty" db:"user_id"`
	EventType AuthEventType `json:"event_type" db:"event_type"`
	IPAddress string        `json:"ip_address" db:"ip_address"`
	UserAgent string        `json:"user_agent" db:"user_agent"`
	Details   JSONB         `json:"details" db:"details"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
}
