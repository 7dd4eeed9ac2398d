package observability

import (
	"runtime/debug"
)

// RecoverPanic recovers from a panic and logs it with structured
// logging. Call it in a defer; the panic is not re-raised, so the
// goroutine returns normally afterwards.
func RecoverPanic(logger *Logger, context string) {
	if r := recover(); r != nil {
		logger.WithField("panic", r).
			WithField("stack", string(debug.Stack())).
			WithField("context", context).
			Error("PANIC recovered")
	}
}
