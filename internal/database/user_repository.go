package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/onehorn/event-booking-backend/internal/models"
)

// ErrEmailTaken is returned when signing up with an email that already has an account
var ErrEmailTaken = errors.New("email already registered")

const profileColumns = `id, email, full_name, phone, address, avatar_url, terms_accepted, terms_accepted_at, created_at, updated_at`

// UserRepository handles users and their profiles
type UserRepository struct {
	db DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser stores login credentials for a new account
func (r *UserRepository) CreateUser(ctx context.Context, email, passwordHash string) (*models.User, error) {
	query := `
		INSERT INTO users (email, password_hash)
		VALUES ($1, $2)
		RETURNING id, email, password_hash, created_at, updated_at`

	var user models.User
	err := r.db.GetContext(ctx, &user, query, normalizeEmail(email), passwordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &user, nil
}

// GetUserByEmail retrieves a user by email (case-insensitive)
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT id, email, password_hash, created_at, updated_at FROM users WHERE email = $1`

	var user models.User
	if err := r.db.GetContext(ctx, &user, query, normalizeEmail(email)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return &user, nil
}

// GetUserByID retrieves a user by id
func (r *UserRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT id, email, password_hash, created_at, updated_at FROM users WHERE id = $1`

	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return &user, nil
}

// UpdatePasswordHash replaces the stored password hash
func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error {
	query := `UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, passwordHash, id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// EnsureProfile creates the profile row for a user if it does not exist.
// Existing profile fields are kept; only blank ones are filled in.
func (r *UserRepository) EnsureProfile(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	var termsAcceptedAt interface{}
	if p.TermsAccepted {
		now := time.Now()
		if p.TermsAcceptedAt != nil {
			now = *p.TermsAcceptedAt
		}
		termsAcceptedAt = now
	}

	query := `
		INSERT INTO profiles (id, email, full_name, phone, address, terms_accepted, terms_accepted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			full_name = CASE WHEN profiles.full_name = '' THEN EXCLUDED.full_name ELSE profiles.full_name END,
			phone     = CASE WHEN profiles.phone = '' THEN EXCLUDED.phone ELSE profiles.phone END,
			address   = CASE WHEN profiles.address = '' THEN EXCLUDED.address ELSE profiles.address END
		RETURNING ` + profileColumns

	var profile models.Profile
	err := r.db.GetContext(ctx, &profile, query,
		p.ID,
		normalizeEmail(p.Email),
		p.FullName,
		p.Phone,
		p.Address,
		p.TermsAccepted,
		termsAcceptedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure profile: %w", err)
	}

	return &profile, nil
}

// GetProfile retrieves a user's profile
func (r *UserRepository) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

	var profile models.Profile
	if err := r.db.GetContext(ctx, &profile, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return &profile, nil
}

// UpdateProfile overwrites the editable profile fields
func (r *UserRepository) UpdateProfile(ctx context.Context, id uuid.UUID, req *models.UpdateProfileRequest) (*models.Profile, error) {
	query := `
		UPDATE profiles
		SET full_name = $1, phone = $2, address = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING ` + profileColumns

	var profile models.Profile
	err := r.db.GetContext(ctx, &profile, query, req.FullName, req.Phone, req.Address, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return &profile, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
