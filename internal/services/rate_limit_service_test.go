package services

import (
	"testing"
	"time"

	"github.com/onehorn/event-booking-backend/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(now *time.Time) *RateLimitService {
	s := NewRateLimitService(RateLimitConfig{
		MaxEmailAttempts: 3,
		EmailWindow:      10 * time.Minute,
		MaxIPAttempts:    5,
		IPWindow:         time.Hour,
	})
	s.now = func() time.Time { return *now }
	return s
}

func TestCheckSignIn_NoAttempts(t *testing.T) {
	now := time.Now()
	s := newTestLimiter(&now)
	assert.NoError(t, s.CheckSignIn("asha@example.com", "192.0.2.1"))
}

func TestCheckSignIn_EmailExceeded(t *testing.T) {
	now := time.Now()
	s := newTestLimiter(&now)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.CheckSignIn("asha@example.com", "192.0.2.1"))
		s.RecordFailure(" Asha@Example.com ", "192.0.2.1")
	}

	err := s.CheckSignIn("asha@example.com", "198.51.100.9")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrRateLimited)
	assert.Equal(t, now.Add(10*time.Minute).UTC().Format(time.RFC3339),
		apperror.From(err).Details["retry_after"])

	// other accounts are unaffected
	assert.NoError(t, s.CheckSignIn("ravi@example.com", "198.51.100.9"))
}

func TestCheckSignIn_WindowExpires(t *testing.T) {
	now := time.Now()
	s := newTestLimiter(&now)

	for i := 0; i < 3; i++ {
		s.RecordFailure("asha@example.com", "")
	}
	require.Error(t, s.CheckSignIn("asha@example.com", ""))

	now = now.Add(11 * time.Minute)
	assert.NoError(t, s.CheckSignIn("asha@example.com", ""))
}

func TestCheckSignIn_IPExceeded(t *testing.T) {
	now := time.Now()
	s := newTestLimiter(&now)

	emails := []string{"a@example.com", "b@example.com", "c@example.com", "d@example.com", "e@example.com"}
	for _, email := range emails {
		s.RecordFailure(email, "192.0.2.1")
	}

	err := s.CheckSignIn("f@example.com", "192.0.2.1")
	assert.ErrorIs(t, err, apperror.ErrRateLimited)
	assert.NoError(t, s.CheckSignIn("f@example.com", "192.0.2.2"))
}

func TestReset_ClearsEmailOnly(t *testing.T) {
	now := time.Now()
	s := newTestLimiter(&now)

	for i := 0; i < 5; i++ {
		s.RecordFailure("asha@example.com", "192.0.2.1")
	}
	s.Reset("ASHA@example.com")

	assert.NoError(t, s.CheckSignIn("asha@example.com", ""))
	assert.Error(t, s.CheckSignIn("asha@example.com", "192.0.2.1"))
}

func TestRateLimitService_NilIsDisabled(t *testing.T) {
	var s *RateLimitService
	assert.NoError(t, s.CheckSignIn("asha@example.com", "192.0.2.1"))
	s.RecordFailure("asha@example.com", "192.0.2.1")
	s.Reset("asha@example.com")
}
