package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error returned by the service matches exactly one of
// these through errors.Is.
var (
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("conflict")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("access forbidden")
	ErrInternal           = errors.New("internal error")
)

var (
	ErrUserExists       = fmt.Errorf("%w: user already exists", ErrConflict)
	ErrPatientDNIExists = fmt.Errorf("%w: patient DNI already exists", ErrConflict)
	ErrUserNotFound     = fmt.Errorf("%w: user not found", ErrNotFound)
	ErrPatientNotFound  = fmt.Errorf("%w: patient not found", ErrNotFound)
	ErrSessionClose     = fmt.Errorf("%w: could not close session", ErrInternal)
)

// ValidationError describes malformed or incomplete input. Fields lists the
// offending field names when they are known.
type ValidationError struct {
	Message string
	Fields  []string
}

func NewValidationError(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

// MissingFields reports all absent fields at once, prefixed by what they
// belong to (e.g. "missing patient fields: DNI, Edad").
func MissingFields(what string, fields []string) *ValidationError {
	return &ValidationError{
		Message: fmt.Sprintf("missing %s: %s", what, strings.Join(fields, ", ")),
		Fields:  fields,
	}
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Internal wraps an unexpected failure of a store or primitive. The result
// matches ErrInternal and keeps err reachable for logging.
func Internal(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrInternal, op, err)
}
