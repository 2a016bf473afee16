package store

import "errors"

// Sentinel errors returned by the local store. Callers should use
// [errors.Is] to match against these values.
var (
	// ErrNotFound is returned by Get when no record with the requested id
	// exists in the collection. Delete treats a missing id as a no-op.
	ErrNotFound = errors.New("record not found")

	// ErrStorageFatal wraps any failure to open or upgrade the local
	// database. It is surfaced once at startup; the caller is expected to
	// degrade to in-memory-only operation via [OpenInMemory].
	ErrStorageFatal = errors.New("local store unavailable")
)
