package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness. Fields carries
// per-field validation messages when the failure is a validation one.
type Error struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Status  int               `json:"status"`
	Fields  map[string]string `json:"fields,omitempty"`
	Err     error             `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for the failure classes the dashboard core deals in.
var (
	// ErrNetwork covers connectivity and timeout failures against the
	// upstream API. Retryable by explicit user action only.
	ErrNetwork = New("NETWORK_ERROR", http.StatusBadGateway, "upstream service unreachable")
	// ErrAuth means the session token was rejected upstream; the caller must
	// hand off to the auth flow, never retry here.
	ErrAuth       = New("AUTH_ERROR", http.StatusUnauthorized, "session expired or invalid")
	ErrValidation = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrConflict   = New("CONFLICT", http.StatusConflict, "conflict")
	ErrNotFound   = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden  = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrInternal   = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")

	// Invariant violations. Not reachable through normal UI action; logged
	// and surfaced as a generic failure.
	ErrUnknownEntity      = New("UNKNOWN_ENTITY", http.StatusInternalServerError, "entity not in current scope")
	ErrSubmissionInFlight = New("SUBMISSION_IN_FLIGHT", http.StatusConflict, "a submission is already in progress")
)

// Validation builds a validation error carrying per-field messages.
func Validation(message string, fields map[string]string) *Error {
	e := Clone(ErrValidation, message)
	e.Fields = fields
	return e
}

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Is reports whether err carries the given predefined code.
func Is(err error, target *Error) bool {
	e := FromError(err)
	return e != nil && target != nil && e.Code == target.Code
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
