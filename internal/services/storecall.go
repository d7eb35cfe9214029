package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"campushub/internal/domain"
)

const (
	defaultStoreTimeout    = 5 * time.Second
	defaultStoreMaxRetries = 3
)

// storeCaller bounds every store call with a timeout and retries the transient
// failures only. Validation, permission and conflict errors return immediately.
type storeCaller struct {
	logger     *slog.Logger
	timeout    time.Duration
	maxRetries uint64
	metrics    domain.RegistrationMetrics
	newBackOff func() backoff.BackOff
}

func newStoreCaller(logger *slog.Logger, timeout time.Duration, metrics domain.RegistrationMetrics) storeCaller {
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	return storeCaller{
		logger:     logger,
		timeout:    timeout,
		maxRetries: defaultStoreMaxRetries,
		metrics:    metrics,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 100 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			return b
		},
	}
}

func (c storeCaller) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempt := 0
	operation := func() error {
		attempt++
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		err := fn(callCtx)
		if err == nil {
			return nil
		}
		if !isTransient(err) || ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		c.logger.WarnContext(ctx, "transient store error", "op", op, "attempt", attempt, "err", err)
		if c.metrics != nil {
			c.metrics.StoreRetry(op)
		}
		return err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.maxRetries), ctx)
	err := backoff.Retry(operation, b)
	c.logger.DebugContext(ctx, "store call", "op", op, "attempts", attempt, "err", err)
	if err == nil {
		return nil
	}
	if isTransient(err) && !errors.Is(err, domain.ErrUnavailable) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrUnavailable, err)
	}
	return err
}

// isTransient reports whether err belongs to the retryable class.
func isTransient(err error) bool {
	return errors.Is(err, domain.ErrUnavailable) || errors.Is(err, context.DeadlineExceeded)
}
