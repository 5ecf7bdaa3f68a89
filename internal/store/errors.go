package store

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable matches every error caused by the storage layer being
	// unreachable, locked beyond the busy timeout, or closed.
	ErrUnavailable = errors.New("store unavailable")

	// ErrClosed indicates an operation on a closed Store.
	ErrClosed = errors.New("store closed")
)

// Error wraps a storage-layer failure with the operation that hit it.
// It matches ErrUnavailable via errors.Is.
type Error struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, ErrUnavailable, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrUnavailable.
func (e *Error) Is(target error) bool {
	return target == ErrUnavailable
}

// IsUnavailable returns true if err was caused by storage being unavailable.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

func unavailable(op string, err error) error {
	return &Error{Op: op, Err: err}
}
