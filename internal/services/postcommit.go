package services

import (
	"context"
	"log/slog"
)

// postCommitAction is a best-effort side effect that runs after the primary
// write has committed. Its failure never changes the outcome of the operation.
type postCommitAction struct {
	name string
	run  func(ctx context.Context) error
}

// runPostCommit runs every action in order. Each failure or panic is logged and
// the remaining actions still run. Actions are detached from the caller's
// cancellation so a dropped request does not abort bookkeeping.
func runPostCommit(ctx context.Context, logger *slog.Logger, actions ...postCommitAction) {
	ctx = context.WithoutCancel(ctx)
	for _, a := range actions {
		if a.run == nil {
			continue
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.ErrorContext(ctx, "post-commit action panicked", "action", a.name, "panic", r)
				}
			}()
			if err := a.run(ctx); err != nil {
				logger.WarnContext(ctx, "post-commit action failed", "action", a.name, "err", err)
			}
		}()
	}
}
