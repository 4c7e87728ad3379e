package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// RefreshTokenRetention is how long expired or revoked refresh tokens are kept
const RefreshTokenRetention = 7 * 24 * time.Hour

// CronService manages scheduled background jobs
type CronService struct {
	cron   *cron.Cron
	tokens RefreshTokenStore
	logger *logrus.Logger
}

// NewCronService creates a new CronService
func NewCronService(tokens RefreshTokenStore, logger *logrus.Logger) *CronService {
	return &CronService{
		cron:   cron.New(cron.WithSeconds()),
		tokens: tokens,
		logger: logger,
	}
}

// Start schedules and starts all jobs
func (s *CronService) Start() error {
	s.logger.Info("Starting cron service...")

	// Cron format: second minute hour day month weekday
	// "0 30 3 * * *" = At 3:30 AM every day
	if _, err := s.cron.AddFunc("0 30 3 * * *", s.cleanupRefreshTokensJob); err != nil {
		return fmt.Errorf("failed to schedule refresh token cleanup: %w", err)
	}
	s.logger.Info("✓ Scheduled: Cleanup refresh tokens (Daily at 3:30 AM)")

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *CronService) Stop() {
	s.logger.Info("Stopping cron service...")
	<-s.cron.Stop().Done()
	s.logger.Info("✓ Cron service stopped")
}

// cleanupRefreshTokensJob deletes refresh tokens past their retention
func (s *CronService) cleanupRefreshTokensJob() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	start := time.Now()
	removed, err := s.tokens.CleanupExpired(ctx, RefreshTokenRetention)
	if err != nil {
		s.logger.WithError(err).Error("[CRON ERROR] Failed to clean up refresh tokens")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"removed":  removed,
		"duration": time.Since(start).String(),
	}).Info("[CRON] Refresh token cleanup completed")
}
