package jobs

import (
	"context"
	"log/slog"
	"time"

	"campushub/internal/domain"
)

const (
	DefaultSweepInterval = 24 * time.Hour
	sweepLockName        = "retention-sweep"
	sweepLockTTL         = 10 * time.Minute
)

// RetentionSweeper runs the guest retention sweep on a fixed interval. When a
// Locker is set, only the instance holding the lock sweeps.
type RetentionSweeper struct {
	service  domain.RetentionService
	locker   domain.Locker
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewRetentionSweeper returns a sweeper. locker may be nil for single-instance deployments.
func NewRetentionSweeper(service domain.RetentionService, locker domain.Locker, interval time.Duration, logger *slog.Logger) *RetentionSweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &RetentionSweeper{
		service:  service,
		locker:   locker,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *RetentionSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("retention sweeper started", "interval", s.interval)
	s.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("retention sweeper stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep. It reports whether this instance swept.
func (s *RetentionSweeper) RunOnce(ctx context.Context) bool {
	if s.locker != nil {
		acquired, release, err := s.locker.TryLock(ctx, sweepLockName, sweepLockTTL)
		if err != nil {
			s.logger.Error("retention sweep lock failed", "error", err)
			return false
		}
		if !acquired {
			s.logger.Debug("retention sweep held by another instance")
			return false
		}
		defer release()
	}

	if res, err := s.service.Sweep(ctx, s.now().UTC()); err != nil {
		s.logger.Error("retention sweep failed", "error", err,
			"registrations", res.Registrations, "notifications", res.Notifications)
	}
	return true
}
