package attempt

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means a referenced simulation, task or result does not exist
	ErrNotFound = errors.New("not found")
	// ErrValidation means the request was rejected before any write
	ErrValidation = errors.New("validation failed")
	// ErrTransientStore means the store failed; the caller may retry
	ErrTransientStore = errors.New("store unavailable")
)

func notFound(kind, id string) error {
	return fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func transient(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrTransientStore, op, err)
}
