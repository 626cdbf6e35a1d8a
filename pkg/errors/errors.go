package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Status  int                    `json:"-"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
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

// Predefined errors covering the clearance workflow taxonomy.
var (
	// ErrValidation covers bad input shape or length at the boundary.
	ErrValidation = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")

	// ErrProtectedField reports an attempted overwrite of an immutable field.
	ErrProtectedField = New("PROTECTED_FIELD", http.StatusForbidden, "attempted to modify a protected field")

	// ErrNotFound reports a missing form or department row.
	ErrNotFound = New("NOT_FOUND", http.StatusNotFound, "resource not found")

	// ErrInvalidState reports a department that is not currently rejected.
	ErrInvalidState = New("INVALID_STATE", http.StatusBadRequest, "department is not in a rejected state")

	// ErrFormTerminal reports a form already completed.
	ErrFormTerminal = New("FORM_COMPLETED", http.StatusForbidden, "form is already completed")

	// ErrLimitExceeded reports the per-department retry cap. The details
	// carry the admin-override hint surfaced to callers.
	ErrLimitExceeded = &Error{
		Code:    "REAPPLY_LIMIT_EXCEEDED",
		Status:  http.StatusForbidden,
		Message: "reapplication limit reached for this department",
		Details: map[string]interface{}{"can_request_override": true},
	}

	// ErrConcurrentModification reports a failed optimistic-write guard.
	// Retryable once the row settles.
	ErrConcurrentModification = New("CONCURRENT_MODIFICATION", http.StatusInternalServerError, "row was modified concurrently")

	// ErrPersistence reports a failed store write. Retryable.
	ErrPersistence = New("PERSISTENCE_ERROR", http.StatusInternalServerError, "store write failed")

	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrForbidden    = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrInternal     = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")

	// ErrCacheMiss signals an absent cache entry; never surfaced to callers.
	ErrCacheMiss = New("CACHE_MISS", http.StatusInternalServerError, "cache miss")
)

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

// WithDetail returns a copy of the error carrying an extra detail entry.
func WithDetail(err *Error, key string, value interface{}) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	details := make(map[string]interface{}, len(clone.Details)+1)
	for k, v := range clone.Details {
		details[k] = v
	}
	details[key] = value
	clone.Details = details
	return &clone
}
