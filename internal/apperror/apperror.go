// Package apperror holds the error taxonomy shared by the services, the
// ingestion pipeline and the HTTP layer. Callers wrap these sentinels with
// fmt.Errorf("...: %w", ...) and match them with errors.Is.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrUnknownRole     = errors.New("unknown role")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrValidation      = errors.New("validation error")
	ErrStorage         = errors.New("storage error")
	ErrConflict        = errors.New("conflict")
)

// NotFound reports a missing entity of the given kind.
func NotFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}

// Validation reports malformed input.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Storage wraps a collaborator I/O failure so it matches both ErrStorage
// and the underlying driver error.
func Storage(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
