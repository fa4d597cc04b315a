package apierror

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Error represents a structured API error response.
type Error struct {
	StatusCode int          `json:"-"`
	Code       string       `json:"code"`
	Message    string       `json:"message"`
	Details    []FieldError `json:"details,omitempty"`
}

// FieldError represents a validation error for a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// body is the wire shape of every error response.
type body struct {
	Success bool   `json:"success"`
	Error   *Error `json:"error"`
}

// New creates an error with an explicit status and code.
func New(statusCode int, code, message string) *Error {
	return &Error{StatusCode: statusCode, Code: code, Message: message}
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// WithDetails adds field-level error details.
func (e *Error) WithDetails(details ...FieldError) *Error {
	e.Details = details
	return e
}

// ToJSON converts the error to JSON bytes.
func (e *Error) ToJSON() []byte {
	data, _ := json.Marshal(body{Success: false, Error: e})
	return data
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func orDefault(message, fallback string) string {
	if message == "" {
		return fallback
	}
	return message
}

// BadRequest creates a 400 Bad Request error.
func BadRequest(message string) *Error {
	return New(http.StatusBadRequest, "BAD_REQUEST", orDefault(message, "Invalid request"))
}

// ValidationError creates a 400 error with validation details.
func ValidationError(message string, details ...FieldError) *Error {
	return New(http.StatusBadRequest, "VALIDATION_ERROR", orDefault(message, "Validation failed")).
		WithDetails(details...)
}

// Unauthorized creates a 401 Unauthorized error.
func Unauthorized(message string) *Error {
	return New(http.StatusUnauthorized, "UNAUTHORIZED", orDefault(message, "Authentication required"))
}

// NotFound creates a 404 Not Found error.
func NotFound(message string) *Error {
	return New(http.StatusNotFound, "NOT_FOUND", orDefault(message, "Resource not found"))
}

// PayloadTooLarge creates a 413 error for oversized request bodies.
func PayloadTooLarge(message string) *Error {
	return New(http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", orDefault(message, "Request body too large"))
}

// TooManyRequests creates a 429 error for rate-limited clients.
func TooManyRequests(message string) *Error {
	return New(http.StatusTooManyRequests, "RATE_LIMITED", orDefault(message, "Too many requests, please try again later"))
}

// InternalError creates a 500 Internal Server Error.
func InternalError(message string) *Error {
	return New(http.StatusInternalServerError, "INTERNAL_ERROR", orDefault(message, "An unexpected error occurred"))
}
