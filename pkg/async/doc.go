// Package async provides safe concurrent execution primitives for background tasks.
//
// # Overview
//
// This package handles goroutine lifecycle management with panic recovery, timeout
// enforcement, and context cancellation.
//
// # Key Functions
//
// SafeGo: Execute function in goroutine with safety features
//
//	async.SafeGo(ctx, logger, 30*time.Second, "metrics restore", func(ctx context.Context) error {
//		// Task code with automatic panic recovery and timeout
//		return engine.Restore()
//	})
//
// SafeGoNoError: Same lifecycle for tasks without an error result. A zero
// timeout runs the task on the parent context, for long-lived work such as
// file watchers:
//
//	async.SafeGoNoError(ctx, logger, 0, "rules watcher", func(ctx context.Context) {
//		watcher.Run(ctx)
//	})
//
// # Features
//
// Panic Recovery: Captures panics with stack traces
// Timeout Enforcement: Per-task timeouts
// Context Cancellation: Respects context cancellation
//
// # Use Cases
//
// Best-effort state restore, config file watching, shutdown signal handling
//
// # Related Packages
//
//   - pkg/analytics: Uses SafeGo for the startup restore
//   - pkg/observability: Provides the panic recovery and logging
package async
