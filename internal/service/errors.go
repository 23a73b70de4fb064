package service

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure taxonomy. Callers branch with errors.Is
// instead of matching on error strings or concrete exception types.
var (
	// ErrInvalidInput is returned when input validation fails before the
	// pipeline is entered (empty text, missing user, bad parameters).
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when a requested resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrStorageUnavailable is returned when the index storage backend itself
	// is unreachable. Distinct from an empty result set.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrProvider is returned when an external provider (embedding or
	// generation) fails at the transport or protocol level.
	ErrProvider = errors.New("provider error")
	// ErrUnauthorized is returned when the generation provider rejects the
	// bearer credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrEmptyCompletion is returned when the generation provider returns a
	// completion with no content. Treated as a failure, not an empty answer.
	ErrEmptyCompletion = errors.New("empty completion")
	// ErrConfig is returned for fatal configuration errors such as an
	// embedding dimensionality mismatch. Never retried.
	ErrConfig = errors.New("configuration error")
)

// ValidationError represents a validation error with a field name.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// WrapError wraps an error with additional context.
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}
