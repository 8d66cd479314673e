package project

import "errors"

// Sentinel errors for the project package.
var (
	// ErrNotInitialized indicates the project state directory or project record is missing.
	ErrNotInitialized = errors.New("threadwork is not initialized in this project (run 'threadwork init')")
)
