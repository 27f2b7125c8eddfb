package engine

import (
	"errors"
	"fmt"
)

// Domain error kinds. Handlers map these to HTTP statuses with errors.Is.
var (
	// ErrValidation marks malformed or out-of-range input.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks an unknown or not-owned entity. Foreign entities are
	// reported identically to missing ones so ownership never leaks.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState marks an operation that is illegal for the entity's
	// current status, including settling an already-settled session.
	ErrInvalidState = errors.New("invalid state")

	// ErrConflict marks a transient concurrency failure. The operation is
	// safe to retry because settlement is guarded by check-and-set.
	ErrConflict = errors.New("conflict")
)

func validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrValidation}, args...)...)
}

func notFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrNotFound}, args...)...)
}

func invalidStatef(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrInvalidState}, args...)...)
}
