package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campushub/internal/domain"
)

func newTestStoreCaller(timeout time.Duration, metrics domain.RegistrationMetrics) storeCaller {
	c := newStoreCaller(discardLogger(), timeout, metrics)
	c.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return c
}

func TestStoreCaller_Do(t *testing.T) {
	ctx := context.Background()
	errValidation := errors.New("bad input")

	tests := []struct {
		name      string
		errs      []error
		wantCalls int
		wantErr   error
	}{
		{name: "success first try", errs: []error{nil}, wantCalls: 1},
		{name: "unavailable then success", errs: []error{domain.ErrUnavailable, nil}, wantCalls: 2},
		{name: "deadline exceeded then success", errs: []error{context.DeadlineExceeded, nil}, wantCalls: 2},
		{name: "validation error not retried", errs: []error{errValidation}, wantCalls: 1, wantErr: errValidation},
		{name: "conflict not retried", errs: []error{domain.ErrAlreadyRegistered}, wantCalls: 1, wantErr: domain.ErrAlreadyRegistered},
		{
			name:      "deadline exhausted maps to unavailable",
			errs:      []error{context.DeadlineExceeded, context.DeadlineExceeded, context.DeadlineExceeded, context.DeadlineExceeded},
			wantCalls: 4,
			wantErr:   domain.ErrUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics := newFakeMetrics()
			c := newTestStoreCaller(time.Second, metrics)
			calls := 0

			err := c.do(ctx, "op", func(ctx context.Context) error {
				err := tt.errs[calls]
				calls++
				return err
			})

			assert.Equal(t, tt.wantCalls, calls)
			transient := 0
			for _, e := range tt.errs[:calls] {
				if isTransient(e) {
					transient++
				}
			}
			assert.Equal(t, transient, metrics.retries["op"])
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestStoreCaller_Do_AppliesTimeout(t *testing.T) {
	c := newTestStoreCaller(10*time.Millisecond, nil)
	c.maxRetries = 0

	err := c.do(context.Background(), "slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	require.ErrorIs(t, err, domain.ErrUnavailable)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStoreCaller_Do_CancelledParentNotRetried(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := newTestStoreCaller(time.Second, nil)
	calls := 0

	err := c.do(ctx, "op", func(ctx context.Context) error {
		calls++
		return domain.ErrUnavailable
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
