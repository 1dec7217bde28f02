package storage

import "errors"

var (
	// ErrNotFound is returned when a record with the requested id does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable marks failures of the backend itself: lost connections,
	// timeouts, I/O errors.
	ErrUnavailable = errors.New("storage unavailable")

	// ErrInvalidRecord is returned when a record fails validation before write.
	ErrInvalidRecord = errors.New("invalid record")
)

// InsertResult reports how many records of one InsertMany call were
// accepted and how many were refused because their email already exists.
type InsertResult struct {
	Inserted int
	Rejected int
}
