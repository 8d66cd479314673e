package ralph

import (
	"fmt"
	"log/slog"
	"runtime/debug"
)

// Guard runs fn and converts a panic into fallback. The fault is logged once
// at ERROR with the operation name and stack.
func Guard[T any](logger *slog.Logger, op string, fallback T, fn func() T) (out T) {
	defer func() {
		if r := recover(); r != nil {
			if logger != nil {
				logger.Error("recovered fault", "op", op, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			}
			out = fallback
		}
	}()
	return fn()
}
