package async

import (
	"context"
	"time"

	"github.com/platinummonkey/beacon/pkg/observability"
)

// SafeGo executes a function in a goroutine with:
// - Context cancellation support
// - Panic recovery
// - Optional timeout enforcement (timeout <= 0 runs on the parent context)
// - Error logging
//
// Use this instead of bare `go func()` for background work that must not
// crash the process.
//
// Example:
//
//	async.SafeGo(ctx, logger, 30*time.Second, "metrics restore", func(ctx context.Context) error {
//	    return engine.Restore()
//	})
func SafeGo(parentCtx context.Context, logger *observability.Logger, timeout time.Duration, taskName string, fn func(context.Context) error) {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	go func() {
		ctx := parentCtx
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(parentCtx, timeout)
			defer cancel()
		}

		defer observability.RecoverPanic(logger, taskName)

		if err := fn(ctx); err != nil {
			// Log but don't crash. The caller decides whether a failed
			// task is critical.
			logger.WithError(err).Errorf("Background task %s failed", taskName)
		}
	}()
}

// SafeGoNoError is like SafeGo but for functions that don't return errors.
// Still provides panic recovery and context support.
//
// Example:
//
//	async.SafeGoNoError(ctx, logger, 0, "rules watcher", func(ctx context.Context) {
//	    watcher.Run(ctx)
//	})
func SafeGoNoError(parentCtx context.Context, logger *observability.Logger, timeout time.Duration, taskName string, fn func(context.Context)) {
	SafeGo(parentCtx, logger, timeout, taskName, func(ctx context.Context) error {
		fn(ctx)
		return nil
	})
}
