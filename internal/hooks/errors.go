package hooks

import "errors"

// Sentinel errors for the hooks package.
var (
	// ErrUnknownEvent indicates a hook event name threadwork does not handle.
	ErrUnknownEvent = errors.New("unknown hook event")
)
