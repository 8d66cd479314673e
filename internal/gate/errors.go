package gate

import "errors"

// Sentinel errors for the gate package.
var (
	// ErrInvalidQualityConfig is returned when quality-config.json is unreadable
	// or does not match its schema.
	ErrInvalidQualityConfig = errors.New("invalid quality gate configuration")

	// ErrCheckFault is returned when a check could not be executed at all
	// (command could not start, timed out, or panicked).
	ErrCheckFault = errors.New("quality gate check fault")
)
