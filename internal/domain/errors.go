package domain

import (
	"errors"
	"fmt"
	"time"
)

// Error codes for different failure scenarios
const (
	ErrUnknownParameter = "UNKNOWN_PARAMETER"
	ErrInvalidValue     = "INVALID_VALUE"
	ErrDegenerateRange  = "DEGENERATE_RANGE"
	ErrValidation       = "VALIDATION_ERROR"
	ErrDatabaseError    = "DATABASE_ERROR"
	ErrExternalAPI      = "EXTERNAL_API_ERROR"
	ErrRateLimit        = "RATE_LIMIT_EXCEEDED"
	ErrNotFoundCode     = "NOT_FOUND"
	ErrInternalServer   = "INTERNAL_SERVER_ERROR"
)

// ErrNotFound is the sentinel for repository lookups that match nothing.
var ErrNotFound = errors.New("record not found")

// EngineError represents a failure inside the prediction engine
type EngineError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewEngineError creates a new EngineError
func NewEngineError(code, message string) *EngineError {
	return &EngineError{Code: code, Message: message}
}

// IsEngineError reports whether err is an EngineError with the given code.
func IsEngineError(err error, code string) bool {
	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return engineErr.Code == code
	}
	return false
}

// APIError represents a standardized error response
type APIError struct {
	Code          string    `json:"code"`
	Message       string    `json:"message"`
	Details       string    `json:"details,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAPIError creates a new APIError with timestamp
func NewAPIError(code, message, details, correlationID string) *APIError {
	return &APIError{
		Code:          code,
		Message:       message,
		Details:       details,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
	}
}

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}
