package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrIllegalStateTransition = errors.New("illegal state transition")
	ErrValidation             = errors.New("validation failed")
	// ErrConflict reports a lost optimistic lock or a uniqueness violation.
	ErrConflict = errors.New("conflict")
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundError tags a missing entity of the given kind.
func NotFoundError(kind, id string) error {
	return fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
}
