package domain

import (
	"context"
	"time"
)

// SweepResult reports what one retention sweep removed.
type SweepResult struct {
	Registrations int64 `json:"registrations"`
	Notifications int64 `json:"notifications"`
}

// RetentionService deletes guest data past its expiry.
type RetentionService interface {
	Sweep(ctx context.Context, now time.Time) (SweepResult, error)
}

// Locker guards jobs that must run on a single instance at a time.
type Locker interface {
	// TryLock reports whether the lock was acquired; release must be called when it was.
	TryLock(ctx context.Context, name string, ttl time.Duration) (acquired bool, release func(), err error)
}
