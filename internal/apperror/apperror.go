// Package apperror defines the typed application error carried through
// every layer. Errors built here already know their HTTP-equivalent status;
// anything else is normalized to a bad request before it leaves a service.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error is the typed application error. It is re-thrown unchanged through
// every layer; untyped errors are wrapped exactly once.
type Error struct {
	Status  int          `json:"-"`
	Type    string       `json:"type"`
	Message string       `json:"message"`
	Fields  []FieldError `json:"errors,omitempty"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

func NotFound(message string) *Error {
	return &Error{Status: http.StatusNotFound, Type: "not_found", Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Status: http.StatusForbidden, Type: "forbidden", Message: message}
}

func Unauthorized(message string) *Error {
	return &Error{Status: http.StatusUnauthorized, Type: "unauthorized", Message: message}
}

func Conflict(message string) *Error {
	return &Error{Status: http.StatusConflict, Type: "conflict", Message: message}
}

func BadRequest(message string) *Error {
	return &Error{Status: http.StatusBadRequest, Type: "invalid_request", Message: message}
}

// Validation builds a 400 carrying a field-level error list.
func Validation(fields ...FieldError) *Error {
	return &Error{
		Status:  http.StatusBadRequest,
		Type:    "validation_error",
		Message: "validation error",
		Fields:  fields,
	}
}

func Field(field, code, message string) FieldError {
	return FieldError{Field: field, Code: code, Message: message}
}

// Internal wraps an unexpected failure. The cause is kept for server-side
// logging and never serialized to the caller.
func Internal(cause error) *Error {
	return &Error{
		Status:  http.StatusInternalServerError,
		Type:    "internal_error",
		Message: "internal server error",
		cause:   cause,
	}
}

// Wrap attaches a cause without changing the visible error.
func (e *Error) Wrap(cause error) *Error {
	clone := *e
	clone.cause = cause
	return &clone
}

// As extracts a typed application error, if err carries one.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) && appErr != nil {
		return appErr, true
	}
	return nil, false
}

// From normalizes any error into a typed application error. Typed errors
// pass through unchanged; everything else becomes a generic bad request
// with the cause preserved for logging.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	if appErr, ok := As(err); ok {
		return appErr
	}
	return BadRequest("operation failed").Wrap(err)
}
