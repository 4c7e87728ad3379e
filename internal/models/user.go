package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// User holds login credentials. Profile data lives in Profile.
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Profile is the customer's contact record, keyed by user id
type Profile struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	Email           string     `json:"email" db:"email"`
	FullName        string     `json:"full_name" db:"full_name"`
	Phone           string     `json:"phone" db:"phone"`
	Address         string     `json:"address" db:"address"`
	AvatarURL       string     `json:"avatar_url,omitempty" db:"avatar_url"`
	TermsAccepted   bool       `json:"terms_accepted" db:"terms_accepted"`
	TermsAcceptedAt *time.Time `json:"terms_accepted_at,omitempty" db:"terms_accepted_at"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// RefreshToken represents a stored (hashed) refresh token
type RefreshToken struct {
	ID         uuid.UUID      `json:"id" db:"id"`
	UserID     uuid.UUID      `json:"user_id" db:"user_id"`
	TokenHash  string         `json:"-" db:"token_hash"` // Never expose
	IPAddress  sql.NullString `json:"-" db:"ip_address"`
	UserAgent  sql.NullString `json:"-" db:"user_agent"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
	ExpiresAt  time.Time      `json:"expires_at" db:"expires_at"`
	LastUsedAt sql.NullTime   `json:"-" db:"last_used_at"`
	Revoked    bool           `json:"revoked" db:"revoked"`
	RevokedAt  sql.NullTime   `json:"-" db:"revoked_at"`
}

// SignUpRequest is the body of POST /auth/signup
type SignUpRequest struct {
	Email         string `json:"email" validate:"required,email,max=254"`
	Password      string `json:"password" validate:"required,min=8,max=128,strong_password"`
	FullName      string `json:"full_name" validate:"required,max=200"`
	Phone         string `json:"phone" validate:"omitempty,event_phone"`
	Address       string `json:"address" validate:"max=500"`
	TermsAccepted bool   `json:"terms_accepted" validate:"eq=true"`
}

// SignInRequest is the body of POST /auth/signin
type SignInRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest is the body of POST /auth/refresh
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// UpdateProfileRequest is the body of PUT /user/profile
type UpdateProfileRequest struct {
	FullName string `json:"full_name" validate:"required,max=200"`
	Phone    string `json:"phone" validate:"omitempty,event_phone"`
	Address  string `json:"address" validate:"max=500"`
}

// ChangePasswordRequest is the body of PUT /user/password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128,strong_password,nefield=CurrentPassword"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

// AuthSession is returned after a successful sign-in or refresh
type AuthSession struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	TokenType    string    `json:"token_type"`
	User         *Profile  `json:"user"`
	IssuedAt     time.Time `json:"issued_at"`
}

// ClientInfo describes the caller for audit purposes
type ClientInfo struct {
	IPAddress string
	UserAgent string
}
