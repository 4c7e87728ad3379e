package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/onehorn/event-booking-backend/internal/models"
	"github.com/onehorn/event-booking-backend/internal/utils"
	"github.com/sirupsen/logrus"
)

// AuditService records identity events with the caller's device information
type AuditService struct {
	store   AuthAuditor
	enabled bool
	logger  *logrus.Logger
}

// NewAuditService creates a new audit service. When disabled, events are only logged.
func NewAuditService(store AuthAuditor, enabled bool, logger *logrus.Logger) *AuditService {
	return &AuditService{
		store:   store,
		enabled: enabled,
		logger:  logger,
	}
}

// LogSignup logs a new account
func (s *AuditService) LogSignup(ctx context.Context, userID uuid.UUID, client models.ClientInfo) {
	s.logEvent(ctx, &userID, models.AuthEventSignup, client, nil)
}

// LogLogin logs a successful sign-in
func (s *AuditService) LogLogin(ctx context.Context, userID uuid.UUID, client models.ClientInfo) {
	s.logEvent(ctx, &userID, models.AuthEventLogin, client, nil)
}

// LogLoginFailed logs a rejected sign-in. The user id is nil when the email is unknown.
func (s *AuditService) LogLoginFailed(ctx context.Context, userID *uuid.UUID, email string, client models.ClientInfo, reason string) {
	s.logEvent(ctx, userID, models.AuthEventLoginFailed, client, map[string]interface{}{
		"email":  email,
		"reason": reason,
	})
}

// LogLogout logs a sign-out and how many sessions it revoked
func (s *AuditService) LogLogout(ctx context.Context, userID uuid.UUID, client models.ClientInfo, revoked int64) {
	s.logEvent(ctx, &userID, models.AuthEventLogout, client, map[string]interface{}{
		"sessions_revoked": revoked,
	})
}

// LogTokenRefresh logs a refresh token rotation
func (s *AuditService) LogTokenRefresh(ctx context.Context, userID uuid.UUID, client models.ClientInfo) {
	s.logEvent(ctx, &userID, models.AuthEventTokenRefresh, client, nil)
}

// LogPasswordChange logs a password change and how many sessions it revoked
func (s *AuditService) LogPasswordChange(ctx context.Context, userID uuid.UUID, client models.ClientInfo, revoked int64) {
	s.logEvent(ctx, &userID, models.AuthEventPasswordChange, client, map[string]interface{}{
		"sessions_revoked": revoked,
	})
}

// logEvent is best-effort: a failed audit write never fails the request
func (s *AuditService) logEvent(ctx context.Context, userID *uuid.UUID, event models.AuthEventType, client models.ClientInfo, details map[string]interface{}) {
	entry := &models.AuthAuditEntry{
		UserID:    userID,
		EventType: event,
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
		Details:   models.JSONB{"device_info": utils.ParseUserAgent(client.UserAgent)},
	}
	for k, v := range details {
		entry.Details[k] = v
	}

	fields := logrus.Fields{"event": event, "ip": client.IPAddress}
	if userID != nil {
		fields["user_id"] = *userID
	}

	if !s.enabled {
		s.logger.WithFields(fields).Debug("Auth event (audit log disabled)")
		return
	}

	if err := s.store.Log(ctx, entry); err != nil {
		s.logger.WithError(err).WithFields(fields).Error("Failed to write auth audit log")
	}
}
