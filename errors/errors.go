package errors

import (
	"fmt"
	"net/http"
)

// AppError is an error a handler can render as-is.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	// Retryable tells clients the same request may succeed later.
	Retryable  bool           `json:"retryable"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	// Cause is logged, never rendered.
	Cause error `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithCause records the underlying error and returns e.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges details into e and returns e.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any, len(details))
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// New creates an AppError. Database errors are marked retryable.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  code == ErrCodeDatabaseError,
	}
}

// NotFound reports a missing resource; id is optional.
func NotFound(resource, id string) *AppError {
	e := New(ErrCodeNotFound, fmt.Sprintf("The requested %s was not found.", resource), http.StatusNotFound)
	e.Details = map[string]any{"resource": resource}
	if id != "" {
		e.Details["id"] = id
	}
	return e
}

// AlreadyExists reports a unique-key collision.
func AlreadyExists(resource string) *AppError {
	e := New(ErrCodeAlreadyExists, fmt.Sprintf("A %s with these details already exists.", resource), http.StatusConflict)
	e.Details = map[string]any{"resource": resource}
	return e
}

// InvalidInput reports a bad value for one field.
func InvalidInput(field, reason string) *AppError {
	e := New(ErrCodeInvalidInput, "Invalid input: "+reason, http.StatusBadRequest)
	if field != "" {
		e.Details = map[string]any{"field": field}
	}
	return e
}

// Validation reports a request that failed binding or validation.
func Validation(message string) *AppError {
	return New(ErrCodeInvalidInput, message, http.StatusBadRequest)
}

// Unauthorized reports missing or rejected credentials.
func Unauthorized(reason string) *AppError {
	if reason == "" {
		reason = "Authentication required."
	}
	return New(ErrCodeUnauthorized, reason, http.StatusUnauthorized)
}

// Forbidden reports an authenticated caller without the permission.
func Forbidden(reason string) *AppError {
	if reason == "" {
		reason = "You don't have permission to perform this action."
	}
	return New(ErrCodeForbidden, reason, http.StatusForbidden)
}

// InactiveUser rejects a disabled account. It is a 400, not a 401: the
// credentials were fine.
func InactiveUser() *AppError {
	return New(ErrCodeInactiveUser, "Inactive user", http.StatusBadRequest)
}

func Internal(cause error) *AppError {
	return New(ErrCodeInternal, "An unexpected error occurred. Please try again or contact support.",
		http.StatusInternalServerError).WithCause(cause)
}

// DatabaseError hides a failed query behind a generic message.
func DatabaseError(cause error) *AppError {
	return New(ErrCodeDatabaseError, "A database error occurred. Please try again.",
		http.StatusInternalServerError).WithCause(cause)
}

// Unavailable reports a database that cannot be reached or is busy.
func Unavailable(cause error) *AppError {
	return New(ErrCodeDatabaseError, "Database is temporarily unavailable. Please try again.",
		http.StatusServiceUnavailable).WithCause(cause)
}
