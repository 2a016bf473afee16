package repository

import "errors"

// Sentinel errors returned by repository methods. Callers should use
// [errors.Is] to match against these values.
var (
	// ErrValidation is returned when a caller-supplied mutation is invalid,
	// e.g. a mandatory field is absent or blank. Never retried.
	ErrValidation = errors.New("invalid record")

	// ErrNotFound is returned when an update, duplicate or session-log
	// targets an id that does not exist in the collection.
	ErrNotFound = errors.New("record not found")
)
