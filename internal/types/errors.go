package types

import (
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
// Handlers use these constants instead of hardcoded strings.
type ErrorCode string

const (
	// Validation (400)
	ErrCodeMessageEmptyContent ErrorCode = "validation_empty_content"
	ErrCodeMessageInvalidField ErrorCode = "validation_invalid_field"
	ErrCodeEventInvalidJSON    ErrorCode = "validation_invalid_json"
	ErrCodeEventInvalidValue   ErrorCode = "validation_invalid_value"

	// Configuration (startup failures, no HTTP mapping in practice)
	ErrCodeConfigInvalid ErrorCode = "config_invalid_value"

	// Queue lifecycle (409)
	ErrCodeQueuePaused ErrorCode = "conflict_queue_paused"

	// Internal/Upstream (500/502)
	ErrCodeInternalUnexpected ErrorCode = "internal_unexpected_error"
	ErrCodeUpstreamTTS        ErrorCode = "upstream_tts_unavailable"
	ErrCodeUpstreamRateLimit  ErrorCode = "upstream_rate_limited"
)

// HTTPStatus maps an ErrorCode to its corresponding HTTP status code.
// Returns 500 for unrecognized codes as a safe default.
func (c ErrorCode) HTTPStatus() int {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "validation_"):
		return http.StatusBadRequest
	case strings.HasPrefix(s, "conflict_"):
		return http.StatusConflict
	case strings.HasPrefix(s, "upstream_"):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// AppError is the structured error type carried through the pipeline. It
// pairs a stable code (for clients and logs) with a human message and an
// optional wrapped cause.
type AppError struct {
	Code    ErrorCode
	Message string
	Details map[string]any
	Err     error
}

// NewAppError constructs an AppError wrapping an optional cause.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// NewAppErrorWithDetails constructs an AppError carrying structured details
// surfaced to API clients (e.g., the failing field name).
func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{Code: code, Message: message, Err: err, Details: details}
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap supports errors.Is/errors.As over the wrapped cause.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status for this error's code.
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}
