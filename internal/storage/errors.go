package storage

import "errors"

// Sentinel errors for the storage package. Callers match these with errors.Is.
var (
	// ErrCorruptRecord is returned when a state record exists but cannot be decoded.
	ErrCorruptRecord = errors.New("corrupt state record")

	// ErrSchemaViolation is returned when a record does not match its JSON schema.
	ErrSchemaViolation = errors.New("record does not match schema")
)
