// Package apperr provides structured error handling for the client core.
//
// The taxonomy mirrors how failures propagate: validation errors are caller
// mistakes caught before any network call, transport errors carry the backend
// message for the presentation layer to render, session-invalid errors convert
// an external fault into a local logout, internal errors are everything else.
package apperr

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of error for metrics and caller handling.
type ErrorType string

const (
	// TypeValidation indicates invalid input rejected before any network call
	TypeValidation ErrorType = "validation"
	// TypeTransport indicates a network or backend failure surfaced to the caller
	TypeTransport ErrorType = "transport"
	// TypeSessionInvalid indicates a credential the backend no longer accepts
	TypeSessionInvalid ErrorType = "session_invalid"
	// TypeInternal indicates a local fault (persistence, serialization)
	TypeInternal ErrorType = "internal"
)

// Error represents a structured error with type, message, and cause.
// Message is human-readable and safe to render; for transport errors it is
// the backend-provided detail when present, else a generic fallback.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// ValidationError creates a new validation error.
func ValidationError(message string) *Error {
	return &Error{Type: TypeValidation, Message: message}
}

// TransportError creates a new transport error. message should be the
// backend detail when the response carried one.
func TransportError(message string, cause error) *Error {
	return &Error{Type: TypeTransport, Message: message, Cause: cause}
}

// SessionInvalidError creates a new session-invalid error.
func SessionInvalidError(message string, cause error) *Error {
	return &Error{Type: TypeSessionInvalid, Message: message, Cause: cause}
}

// InternalError creates a new internal error.
func InternalError(message string, cause error) *Error {
	return &Error{Type: TypeInternal, Message: message, Cause: cause}
}

// TypeOf reports the ErrorType of err, or TypeInternal when err carries no
// structured type.
func TypeOf(err error) ErrorType {
	var structured *Error
	if errors.As(err, &structured) {
		return structured.Type
	}
	return TypeInternal
}

// MessageOf returns the renderable message of err: the structured message
// when present, else err.Error().
func MessageOf(err error) string {
	var structured *Error
	if errors.As(err, &structured) {
		return structured.Message
	}
	return err.Error()
}
