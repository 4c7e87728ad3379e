package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/onehorn/event-booking-backend/internal/database"
	"github.com/onehorn/event-booking-backend/internal/models"
	"github.com/onehorn/event-booking-backend/pkg/apperror"
	"github.com/onehorn/event-booking-backend/pkg/jwt"
	"github.com/onehorn/event-booking-backend/pkg/validator"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// CustomerRole is granted to every signed-up user
const CustomerRole = "customer"

const invalidCredentials = "invalid email or password"

// IdentityService handles customer accounts, sessions and profiles
type IdentityService struct {
	users      UserStore
	tokens     RefreshTokenStore
	jwtService *jwt.Service
	audit      *AuditService
	validator  *validator.StructValidator
	limiter    *RateLimitService
	bcryptCost int
	logger     *logrus.Logger
}

// NewIdentityService creates a new identity service
func NewIdentityService(
	users UserStore,
	tokens RefreshTokenStore,
	jwtService *jwt.Service,
	audit *AuditService,
	v *validator.StructValidator,
	limiter *RateLimitService,
	bcryptCost int,
	logger *logrus.Logger,
) *IdentityService {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &IdentityService{
		users:      users,
		tokens:     tokens,
		jwtService: jwtService,
		audit:      audit,
		validator:  v,
		limiter:    limiter,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// SignUp creates an account and its profile, then signs the user in
func (s *IdentityService) SignUp(ctx context.Context, req *models.SignUpRequest, client models.ClientInfo) (*models.AuthSession, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	user, err := s.users.CreateUser(ctx, req.Email, string(hash))
	if err != nil {
		if errors.Is(err, database.ErrEmailTaken) {
			return nil, apperror.Conflict("email_taken", "an account with this email already exists")
		}
		return nil, apperror.Persistence(err, "your account could not be created, please try again")
	}

	profile, err := s.users.EnsureProfile(ctx, &models.Profile{
		ID:            user.ID,
		Email:         user.Email,
		FullName:      strings.TrimSpace(req.FullName),
		Phone:         req.Phone,
		Address:       strings.TrimSpace(req.Address),
		TermsAccepted: req.TermsAccepted,
	})
	if err != nil {
		return nil, apperror.Persistence(err, "your profile could not be saved, please sign in to retry")
	}

	s.audit.LogSignup(ctx, user.ID, client)
	s.logger.WithField("user_id", user.ID).Info("User signed up")

	return s.issueSession(ctx, user, profile, client)
}

// SignIn checks credentials and issues a new session.
// Repeated failures for an email or IP are throttled.
func (s *IdentityService) SignIn(ctx context.Context, req *models.SignInRequest, client models.ClientInfo) (*models.AuthSession, error) {
	if err := s.limiter.CheckSignIn(req.Email, client.IPAddress); err != nil {
		s.audit.LogLoginFailed(ctx, nil, req.Email, client, "rate_limited")
		return nil, err
	}

	user, err := s.users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			s.limiter.RecordFailure(req.Email, client.IPAddress)
			s.audit.LogLoginFailed(ctx, nil, req.Email, client, "unknown_email")
			return nil, apperror.AuthRequired(invalidCredentials)
		}
		return nil, apperror.Persistence(err, "sign in is temporarily unavailable")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.limiter.RecordFailure(req.Email, client.IPAddress)
		s.audit.LogLoginFailed(ctx, &user.ID, req.Email, client, "wrong_password")
		return nil, apperror.AuthRequired(invalidCredentials)
	}
	s.limiter.Reset(req.Email)

	// Accounts created before profiles existed get one on first sign-in
	profile, err := s.users.EnsureProfile(ctx, &models.Profile{ID: user.ID, Email: user.Email})
	if err != nil {
		return nil, apperror.Persistence(err, "sign in is temporarily unavailable")
	}

	session, err := s.issueSession(ctx, user, profile, client)
	if err != nil {
		return nil, err
	}
	s.audit.LogLogin(ctx, user.ID, client)
	return session, nil
}

// Refresh rotates a refresh token
func (s *IdentityService) Refresh(ctx context.Context, refreshToken string, client models.ClientInfo) (*models.AuthSession, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperror.AuthRequired("your session has expired, please sign in again")
	}

	stored, err := s.tokens.Get(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, apperror.AuthRequired("your session has expired, please sign in again")
		}
		return nil, apperror.Persistence(err, "session refresh is temporarily unavailable")
	}
	if stored.Revoked || time.Now().After(stored.ExpiresAt) || stored.UserID != claims.UserID {
		return nil, apperror.AuthRequired("your session has expired, please sign in again")
	}

	revoked, err := s.tokens.Revoke(ctx, refreshToken)
	if err != nil {
		return nil, apperror.Persistence(err, "session refresh is temporarily unavailable")
	}
	if !revoked {
		// Another request rotated this token first
		return nil, apperror.AuthRequired("your session has expired, please sign in again")
	}

	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, apperror.AuthRequired("your session has expired, please sign in again")
		}
		return nil, apperror.Persistence(err, "session refresh is temporarily unavailable")
	}
	profile, err := s.users.GetProfile(ctx, user.ID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, apperror.Persistence(err, "session refresh is temporarily unavailable")
	}

	session, err := s.issueSession(ctx, user, profile, client)
	if err != nil {
		return nil, err
	}
	s.audit.LogTokenRefresh(ctx, user.ID, client)
	return session, nil
}

// SignOut revokes every refresh token of the user
func (s *IdentityService) SignOut(ctx context.Context, userID uuid.UUID, client models.ClientInfo) error {
	revoked, err := s.tokens.RevokeAllForUser(ctx, userID)
	if err != nil {
		return apperror.Persistence(err, "sign out failed, please try again")
	}
	s.audit.LogLogout(ctx, userID, client, revoked)
	return nil
}

// ChangePassword replaces the password after checking the current one.
// Every refresh token is revoked, so other devices must sign in again.
func (s *IdentityService) ChangePassword(ctx context.Context, userID uuid.UUID, req *models.ChangePasswordRequest, client models.ClientInfo) error {
	if err := s.validate(req); err != nil {
		return err
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return storeError(err, "user", "your password could not be changed, please try again")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return apperror.Validation("wrong_password", "current password is incorrect").
			WithDetail("fields", map[string]any{"current_password": "current password is incorrect"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.bcryptCost)
	if err != nil {
		return apperror.Internal(err)
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, string(hash)); err != nil {
		return storeError(err, "user", "your password could not be changed, please try again")
	}

	revoked, err := s.tokens.RevokeAllForUser(ctx, userID)
	if err != nil {
		// The new password is already in place; stale sessions expire on their own
		s.logger.WithError(err).WithField("user_id", userID).Error("Failed to revoke sessions after password change")
	}

	s.audit.LogPasswordChange(ctx, userID, client, revoked)
	s.logger.WithField("user_id", userID).Info("Password changed")
	return nil
}

// GetProfile returns the user's profile
func (s *IdentityService) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	profile, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		return nil, storeError(err, "profile", "your profile could not be loaded")
	}
	return profile, nil
}

// UpdateProfile validates and stores profile changes
func (s *IdentityService) UpdateProfile(ctx context.Context, userID uuid.UUID, req *models.UpdateProfileRequest) (*models.Profile, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	req.FullName = strings.TrimSpace(req.FullName)
	req.Address = strings.TrimSpace(req.Address)

	profile, err := s.users.UpdateProfile(ctx, userID, req)
	if err != nil {
		return nil, storeError(err, "profile", "your profile could not be saved")
	}
	return profile, nil
}

func (s *IdentityService) issueSession(ctx context.Context, user *models.User, profile *models.Profile, client models.ClientInfo) (*models.AuthSession, error) {
	accessToken, err := s.jwtService.GenerateAccessToken(user.ID, user.Email, []string{CustomerRole})
	if err != nil {
		return nil, apperror.Internal(err)
	}
	refreshToken, err := s.jwtService.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	now := time.Now()
	if err := s.tokens.Store(ctx, user.ID, refreshToken, client, now.Add(s.jwtService.RefreshTokenExpiry())); err != nil {
		return nil, apperror.Persistence(err, "your session could not be started, please try again")
	}

	return &models.AuthSession{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtService.AccessTokenExpiry().Seconds()),
		TokenType:    "Bearer",
		User:         profile,
		IssuedAt:     now,
	}, nil
}

func (s *IdentityService) validate(req interface{}) error {
	err := s.validator.Validate(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.FieldErrors
	if errors.As(err, &fieldErrs) {
		return apperror.Validation("validation_failed", "please correct the highlighted fields").
			WithDetail("fields", fieldErrs.Fields())
	}
	return apperror.Internal(err)
}
