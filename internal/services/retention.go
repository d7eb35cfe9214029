package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"campushub/internal/domain"
)

// SweepMetrics records retention sweep deletions.
type SweepMetrics interface {
	GuestRecordsSwept(collection string, n int64)
}

type retentionService struct {
	registrations domain.RegistrationRepository
	notifications domain.GuestNotificationRepository
	metrics       SweepMetrics
	logger        *slog.Logger
	store         storeCaller
}

// NewRetentionService returns the guest-data sweeper. metrics may be nil.
func NewRetentionService(registrations domain.RegistrationRepository, notifications domain.GuestNotificationRepository, metrics SweepMetrics, logger *slog.Logger, timeout time.Duration) domain.RetentionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &retentionService{
		registrations: registrations,
		notifications: notifications,
		metrics:       metrics,
		logger:        logger,
		store:         newStoreCaller(logger, timeout, nil),
	}
}

// Sweep deletes guest registrations and guest notifications that expired before
// now. Each collection is removed in one batch; running it again is a no-op.
func (s *retentionService) Sweep(ctx context.Context, now time.Time) (domain.SweepResult, error) {
	var res domain.SweepResult

	err := s.store.do(ctx, "retention.guest_registrations", func(ctx context.Context) error {
		var err error
		res.Registrations, err = s.registrations.DeleteExpiredGuests(ctx, now)
		return err
	})
	if err != nil {
		return res, fmt.Errorf("sweep guest registrations: %w", err)
	}
	s.record("guest_registrations", res.Registrations)

	if s.notifications != nil {
		err = s.store.do(ctx, "retention.guest_notifications", func(ctx context.Context) error {
			var err error
			res.Notifications, err = s.notifications.DeleteExpired(ctx, now)
			return err
		})
		if err != nil {
			return res, fmt.Errorf("sweep guest notifications: %w", err)
		}
		s.record("guest_notifications", res.Notifications)
	}

	s.logger.InfoContext(ctx, "guest data swept",
		"registrations", res.Registrations, "notifications", res.Notifications, "cutoff", now)
	return res, nil
}

func (s *retentionService) record(collection string, n int64) {
	if s.metrics != nil {
		s.metrics.GuestRecordsSwept(collection, n)
	}
}
