// Package recovery provides panic recovery for Flight RPC handlers.
// User supplied resolvers, builders and authorizers must not crash the server.
package recovery

import (
	"fmt"
	"log/slog"
	"runtime/debug"
)

// RecoverToValue calls fn and converts a panic into an error.
//
// Example:
//
//	lf, err := recovery.RecoverToValue(logger, "PlanDataset", func() (*plan.LazyFrame, error) {
//	    return planner.PlanDataset(ctx, name)
//	})
func RecoverToValue[T any](logger *slog.Logger, operation string, fn func() (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic recovered",
				"operation", operation,
				"panic", r,
				"stack", string(debug.Stack()),
			)

			var zero T
			result = zero
			err = fmt.Errorf("%s panicked: %v", operation, r)
		}
	}()

	return fn()
}
