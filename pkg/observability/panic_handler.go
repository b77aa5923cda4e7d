package observability

import (
	"runtime/debug"
)

// RecoverPanic recovers from a panic and logs it with structured logging
//
// Usage in defer statements:
//
//	func persistLoop() {
//	    defer observability.RecoverPanic(logger, "metrics persist")
//	    // ... code that might panic
//	}
//
// The function should be called in a defer statement. If a panic occurs,
// it will be recovered and logged at Error level with:
//   - panic value
//   - full stack trace
//   - context about where the panic occurred
//
// After logging, the panic is NOT re-raised - the function returns normally.
// This prevents the panic from crashing the process but may leave the system
// in an inconsistent state. Use carefully.
func RecoverPanic(logger *Logger, context string) {
	if r := recover(); r != nil {
		logger.WithField("panic", r).
			WithField("stack", string(debug.Stack())).
			WithField("context", context).
			Error("PANIC recovered")
	}
}

// RecoverPanicWithCallback recovers from a panic, logs it, and executes a callback
//
// Usage when a failure needs to be recorded after a panic:
//
//	func send(id string, ch chan []byte, frame []byte) (ok bool) {
//	    ok = true
//	    defer observability.RecoverPanicWithCallback(logger, "stream send", func() {
//	        ok = false
//	    })
//	    ch <- frame
//	    return ok
//	}
//
// The callback is executed AFTER logging, and only when a panic actually
// occurred. This allows failure handling like marking a subscriber dead,
// closing channels, or updating state.
func RecoverPanicWithCallback(logger *Logger, context string, callback func()) {
	if r := recover(); r != nil {
		logger.WithField("panic", r).
			WithField("stack", string(debug.Stack())).
			WithField("context", context).
			Error("PANIC recovered")
		if callback != nil {
			callback()
		}
	}
}
