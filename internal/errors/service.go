package errors

import (
	"fmt"
	"net/http"
)

// ServiceError is an error rendered by an HTTP handler.
type ServiceError struct {
	Code       string                 `json:"error"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	HTTPStatus int                    `json:"-"`
	Err        error                  `json:"-"`
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// WithDetails attaches a detail field and returns e.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func newServiceError(status int, code, message string, err error) *ServiceError {
	return &ServiceError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// BadRequest is a malformed or invalid request.
func BadRequest(message string) *ServiceError {
	return newServiceError(http.StatusBadRequest, "bad_request", message, nil)
}

// Unauthorized is a missing or rejected credential.
func Unauthorized(message string) *ServiceError {
	return newServiceError(http.StatusUnauthorized, "unauthorized", message, nil)
}

// InvalidToken is a bearer token that failed verification.
func InvalidToken(err error) *ServiceError {
	return newServiceError(http.StatusUnauthorized, "invalid_token", "Invalid or expired token", err)
}

// Forbidden is an authenticated caller acting on another user's data.
func Forbidden(message string) *ServiceError {
	return newServiceError(http.StatusForbidden, "forbidden", message, nil)
}

// ResourceNotFound is a missing resource.
func ResourceNotFound(resource, id string) *ServiceError {
	return newServiceError(http.StatusNotFound, "not_found", fmt.Sprintf("%s %q not found", resource, id), nil)
}

// Conflict is a uniqueness violation.
func Conflict(message string) *ServiceError {
	return newServiceError(http.StatusConflict, "conflict", message, nil)
}

// RateLimitExceeded is returned when a client exceeds limit requests per window.
func RateLimitExceeded(limit int, window string) *ServiceError {
	return newServiceError(http.StatusTooManyRequests, "rate_limited",
		fmt.Sprintf("Rate limit of %d requests per %s exceeded", limit, window), nil).
		WithDetails("limit", limit).
		WithDetails("window", window)
}

// InternalServer is an unexpected handler failure.
func InternalServer(err error) *ServiceError {
	return newServiceError(http.StatusInternalServerError, "internal_error", "Internal server error", err)
}

// Injected is a failure forced by a test hook.
func Injected(status int) *ServiceError {
	return newServiceError(status, "injected_fault", http.StatusText(status), nil)
}
