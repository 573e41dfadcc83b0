// Package storage holds backend-neutral storage errors shared by the domain
// packages and the PostgreSQL implementation.
package storage

import "errors"

var (
	// ErrConflict marks a transaction that lost a serialization or deadlock
	// race. The caller may retry the whole operation.
	ErrConflict = errors.New("storage conflict")

	// ErrUnavailable marks a backend that could not be reached.
	ErrUnavailable = errors.New("storage unavailable")
)

// IsTransient reports whether err is a retryable storage failure.
func IsTransient(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrUnavailable)
}
