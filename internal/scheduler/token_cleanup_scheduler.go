package scheduler

import (
	"github.com/hometownhq/hometown-backend/internal/app/repository"
	"github.com/hometownhq/hometown-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// TokenCleanupScheduler purges expired and consumed password reset tokens.
// The table is append-mostly, so without a janitor it only ever grows.
type TokenCleanupScheduler struct {
	cron      *cron.Cron
	resetRepo repository.PasswordResetRepository
}

func NewTokenCleanupScheduler(resetRepo repository.PasswordResetRepository) *TokenCleanupScheduler {
	return &TokenCleanupScheduler{
		cron:      cron.New(),
		resetRepo: resetRepo,
	}
}

// Start schedules the hourly cleanup job.
func (s *TokenCleanupScheduler) Start() error {
	_, err := s.cron.AddFunc("@hourly", func() {
		logger.Info("Starting scheduled reset token cleanup", nil)

		count, err := s.resetRepo.DeleteExpired()
		if err != nil {
			logger.Error("Failed to purge dead reset tokens from scheduler", err)
			return
		}

		logger.Info("Reset token cleanup finished", map[string]interface{}{
			"deleted": count,
		})
	})

	if err != nil {
		logger.Error("Failed to add cron job for reset token cleanup", err)
		return err
	}

	s.cron.Start()
	logger.Info("Reset token cleanup scheduler started (hourly)", nil)

	return nil
}

// Stop halts the scheduler.
func (s *TokenCleanupScheduler) Stop() {
	logger.Info("Stopping reset token cleanup scheduler...", nil)
	s.cron.Stop()
}
