// Package jobs holds the periodic maintenance tasks of the auth service.
package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fintrack/auth-service/internal/auth/domain"
	"github.com/fintrack/auth-service/internal/auth/revocation"
	"github.com/fintrack/auth-service/pkg/constant"
)

// Sweeper prunes expired blacklist entries, expired refresh-token
// descriptors, and old login-history rows. It is fire-and-forget: a failed
// sweep is logged and retried at the next tick, never fatal.
type Sweeper struct {
	registry revocation.Registry
	repo     domain.UserRepository
	interval time.Duration
}

func NewSweeper(registry revocation.Registry, repo domain.UserRepository, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{
		registry: registry,
		repo:     repo,
		interval: interval,
	}
}

// Start runs the sweep loop until ctx is canceled.
func (s *Sweeper) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
}

func (s *Sweeper) sweep(ctx context.Context) {
	evicted, err := s.registry.EvictExpired(ctx)
	if err != nil {
		logrus.WithError(err).Warn("blacklist sweep failed")
	}

	deleted, err := s.repo.DeleteExpiredRefreshTokens(ctx)
	if err != nil {
		logrus.WithError(err).Warn("refresh token sweep failed")
	}

	if err := s.repo.TrimLoginAttempts(ctx, constant.LoginHistoryLimit); err != nil {
		logrus.WithError(err).Warn("login history trim failed")
	}

	logrus.WithFields(logrus.Fields{
		"blacklist_evicted":      evicted,
		"refresh_tokens_deleted": deleted,
	}).Debug("sweep completed")
}
