package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for unknown conversations and for conversations
	// owned by someone else. Callers must not be able to tell the two apart.
	ErrNotFound = errors.New("conversation not found")

	// ErrConflict is returned when a conversation changed between load and save.
	ErrConflict = errors.New("conversation was modified concurrently")

	// ErrShuttingDown is returned for exchanges that arrive after draining began.
	ErrShuttingDown = errors.New("chat service is shutting down")
)

// ValidationError reports an unacceptable input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// ProviderError is a classified completion provider failure.
type ProviderError struct {
	Kind       ProviderErrorKind
	StatusCode int // only set for ProviderRejected
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Kind == ProviderRejected {
		return fmt.Sprintf("%s [%d]: %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsProviderKind reports whether err is a ProviderError of the given kind.
func IsProviderKind(err error, kind ProviderErrorKind) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Kind == kind
}

// StorageError wraps a persistence layer failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Outcome maps an error returned by the chat service onto an exchange outcome.
func Outcome(err error) ExchangeOutcome {
	var (
		ve *ValidationError
		pe *ProviderError
	)
	switch {
	case err == nil:
		return OutcomeSucceeded
	case errors.As(err, &ve):
		return OutcomeInvalid
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	case errors.As(err, &pe):
		return OutcomeProviderError
	case errors.Is(err, ErrConflict):
		return OutcomeConflict
	case errors.Is(err, ErrShuttingDown):
		return OutcomeUnavailable
	default:
		return OutcomeStorageError
	}
}
