package config

import "errors"

// Sentinel errors for the config package.
var (
	// ErrInvalidConfig indicates a configuration file or value that cannot be used.
	ErrInvalidConfig = errors.New("invalid configuration")
)
