// Package errs defines the error taxonomy shared by services and the HTTP layer.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks input rejected before any store mutation.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a referenced entity that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a uniqueness or reference constraint violation.
	ErrConflict = errors.New("conflict")
	// ErrUnauthenticated marks a missing, invalid or expired credential.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// ValidationError describes a single rejected field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid builds a ValidationError.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NotFound wraps ErrNotFound with the entity name.
func NotFound(entity string) error {
	return fmt.Errorf("%s %w", entity, ErrNotFound)
}

// Conflict wraps ErrConflict with a caller-facing message.
func Conflict(message string) error {
	return &conflictError{message: message}
}

type conflictError struct {
	message string
}

func (e *conflictError) Error() string        { return e.message }
func (e *conflictError) Is(target error) bool { return target == ErrConflict }

// Unauthenticated wraps ErrUnauthenticated with a caller-facing message.
func Unauthenticated(message string) error {
	return &unauthenticatedError{message: message}
}

type unauthenticatedError struct {
	message string
}

func (e *unauthenticatedError) Error() string        { return e.message }
func (e *unauthenticatedError) Is(target error) bool { return target == ErrUnauthenticated }

// Message returns the caller-facing message carried by err, if any.
func Message(err error) string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Error()
	}
	var cerr *conflictError
	if errors.As(err, &cerr) {
		return cerr.message
	}
	var uerr *unauthenticatedError
	if errors.As(err, &uerr) {
		return uerr.message
	}
	return err.Error()
}
