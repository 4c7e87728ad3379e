package services

import (
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/onehorn/event-booking-backend/pkg/apperror"
)

// RateLimitConfig holds sign-in throttling limits
type RateLimitConfig struct {
	MaxEmailAttempts int           // Failed sign-ins per email
	EmailWindow      time.Duration // Window for the email limit
	MaxIPAttempts    int           // Failed sign-ins per IP
	IPWindow         time.Duration // Window for the IP limit
	MaxTracked       int           // Identifiers kept per limit
}

// DefaultRateLimitConfig returns the default sign-in limits
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxEmailAttempts: 5,                // 5 failures
		EmailWindow:      15 * time.Minute, // per 15 minutes
		MaxIPAttempts:    30,               // 30 failures
		IPWindow:         1 * time.Hour,    // per hour
		MaxTracked:       10000,
	}
}

type attemptWindow struct {
	count int
	start time.Time
}

// RateLimitService throttles failed sign-ins per email and per IP.
// Counters live in memory and expire with their window.
type RateLimitService struct {
	cfg RateLimitConfig
	now func() time.Time

	mu     sync.Mutex
	emails *expirable.LRU[string, attemptWindow]
	ips    *expirable.LRU[string, attemptWindow]
}

// NewRateLimitService creates a sign-in limiter. Zero limits fall back to defaults.
func NewRateLimitService(cfg RateLimitConfig) *RateLimitService {
	def := DefaultRateLimitConfig()
	if cfg.MaxEmailAttempts <= 0 || cfg.EmailWindow <= 0 {
		cfg.MaxEmailAttempts, cfg.EmailWindow = def.MaxEmailAttempts, def.EmailWindow
	}
	if cfg.MaxIPAttempts <= 0 || cfg.IPWindow <= 0 {
		cfg.MaxIPAttempts, cfg.IPWindow = def.MaxIPAttempts, def.IPWindow
	}
	if cfg.MaxTracked <= 0 {
		cfg.MaxTracked = def.MaxTracked
	}

	return &RateLimitService{
		cfg:    cfg,
		now:    time.Now,
		emails: expirable.NewLRU[string, attemptWindow](cfg.MaxTracked, nil, cfg.EmailWindow),
		ips:    expirable.NewLRU[string, attemptWindow](cfg.MaxTracked, nil, cfg.IPWindow),
	}
}

// CheckSignIn returns a RateLimited error when the email or IP is over its limit
func (s *RateLimitService) CheckSignIn(email, ip string) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if email = normalizeEmail(email); email != "" {
		if w, ok := s.active(s.emails, email, s.cfg.EmailWindow, now); ok && w.count >= s.cfg.MaxEmailAttempts {
			return apperror.RateLimited("too many sign-in attempts for this account, please try again later",
				w.start.Add(s.cfg.EmailWindow))
		}
	}
	if ip != "" {
		if w, ok := s.active(s.ips, ip, s.cfg.IPWindow, now); ok && w.count >= s.cfg.MaxIPAttempts {
			return apperror.RateLimited("too many sign-in attempts from this network, please try again later",
				w.start.Add(s.cfg.IPWindow))
		}
	}
	return nil
}

// RecordFailure counts a failed sign-in against the email and the IP
func (s *RateLimitService) RecordFailure(email, ip string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if email = normalizeEmail(email); email != "" {
		s.increment(s.emails, email, s.cfg.EmailWindow, now)
	}
	if ip != "" {
		s.increment(s.ips, ip, s.cfg.IPWindow, now)
	}
}

// Reset clears the email counter after a successful sign-in.
// The IP counter is kept so one valid account cannot unlock a scanning client.
func (s *RateLimitService) Reset(email string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emails.Remove(normalizeEmail(email))
}

func (s *RateLimitService) active(cache *expirable.LRU[string, attemptWindow], key string, window time.Duration, now time.Time) (attemptWindow, bool) {
	w, ok := cache.Get(key)
	if !ok {
		return attemptWindow{}, false
	}
	if now.Sub(w.start) >= window {
		cache.Remove(key)
		return attemptWindow{}, false
	}
	return w, true
}

func (s *RateLimitService) increment(cache *expirable.LRU[string, attemptWindow], key string, window time.Duration, now time.Time) {
	w, ok := s.active(cache, key, window, now)
	if !ok {
		w = attemptWindow{start: now}
	}
	w.count++
	cache.Add(key, w)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
