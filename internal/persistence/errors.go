package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrUnsupportedSchema is returned when a stored document was written by a newer build.
	ErrUnsupportedSchema = errors.New("persistence: unsupported schema version")
	// ErrMalformedDocument is returned when a stored document is neither an envelope nor a legacy array.
	ErrMalformedDocument = errors.New("persistence: malformed document")
)
