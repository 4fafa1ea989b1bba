package domain

import (
	"errors"
	"fmt"
)

// ValidationError means the command input violates a field-level rule. It is
// raised before any event is recorded and is recoverable by correcting input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a ValidationError with a formatted message
func NewValidationError(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// DomainError means the input is well-formed but violates an aggregate state
// invariant (update a deleted plant, review a non-pending request, ...).
type DomainError struct {
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a DomainError with a formatted message
func NewDomainError(format string, args ...interface{}) error {
	return &DomainError{Message: fmt.Sprintf(format, args...)}
}

// StoreError means the event store failed to durably append. The command is
// considered not to have happened and is safe to retry from scratch.
type StoreError struct {
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("event store failure: %v", e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError wraps an underlying persistence failure
func NewStoreError(err error) error {
	return &StoreError{Err: err}
}

// IsValidationError reports whether err is (or wraps) a ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsDomainError reports whether err is (or wraps) a DomainError
func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

// IsStoreError reports whether err is (or wraps) a StoreError
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
