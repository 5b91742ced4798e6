package pipeline

import (
	"errors"
	"fmt"
)

// ErrKind is the typed failure taxonomy surfaced to API callers.
type ErrKind string

const (
	ErrInvalidInput  ErrKind = "invalid_input"
	ErrIndeterminate ErrKind = "classification_indeterminate"
	ErrUpstream      ErrKind = "upstream_unavailable"
	ErrTimeout       ErrKind = "timeout"
	ErrInternal      ErrKind = "internal"
)

// Error is a pipeline failure with a taxonomy kind. Model unavailability is
// deliberately absent: it degrades the result, it never fails the request.
type Error struct {
	Kind    ErrKind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

func newError(kind ErrKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// KindOf extracts the taxonomy kind from an error, defaulting to internal.
func KindOf(err error) ErrKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ErrInternal
}
