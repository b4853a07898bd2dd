package library

import (
	"errors"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrAuthRequired = errors.New("authentication required")
)

// Borrow-state conflicts. All of them match ErrConflict.
var (
	ErrAlreadyBorrowed = Conflict("book is already borrowed")
	ErrNotBorrowed     = Conflict("book is not borrowed")
	ErrBookRemoved     = Conflict("book has been removed")
	ErrStateChanged    = Conflict("book status changed, please retry")
)

type conflictError struct {
	reason string
}

func (e *conflictError) Error() string { return e.reason }

func (e *conflictError) Is(target error) bool { return target == ErrConflict }

// Conflict returns an error matching ErrConflict whose message is safe to show to clients.
func Conflict(reason string) error {
	return &conflictError{reason: reason}
}

// ValidationError carries every rule a request violated.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, ", ")
}

// NewValidationError builds a ValidationError from one or more messages.
func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Messages: messages}
}

// ServiceError wraps an unexpected storage or infrastructure failure.
// Message is what clients see; Error includes the cause for logs.
type ServiceError struct {
	Op  string
	Err error
}

func (e *ServiceError) Error() string {
	if e.Err == nil {
		return "failed to " + e.Op
	}
	return "failed to " + e.Op + ": " + e.Err.Error()
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Message returns the generic client-facing description.
func (e *ServiceError) Message() string {
	return "Failed to " + e.Op
}

// wrapStoreError passes domain errors through untouched and turns anything else
// into a ServiceError for op.
func wrapStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	var ve *ValidationError
	var se *ServiceError
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrConflict), errors.Is(err, ErrAuthRequired):
		return err
	case errors.As(err, &ve), errors.As(err, &se):
		return err
	}
	return &ServiceError{Op: op, Err: err}
}
