package errors

import (
	"errors"
	"fmt"
)

// AppError represents a structured application error with user-friendly and technical details.
type AppError struct {
	TechnicalMessage string
	UserMessage      string
	Code             string
	HTTPStatus       int
	OriginalError    error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %v", e.UserMessage, e.OriginalError)
}

// Unwrap returns the original error for error chaining.
func (e *AppError) Unwrap() error {
	return e.OriginalError
}

// NewAppError creates a new AppError instance.
func NewAppError(technicalMessage, userMessage, code string, status int, originalErr error) *AppError {
	return &AppError{
		TechnicalMessage: technicalMessage,
		UserMessage:      userMessage,
		Code:             code,
		HTTPStatus:       status,
		OriginalError:    originalErr,
	}
}

// Common error codes
const (
	ErrCodeInvalidParameters = "INVALID_PARAMETERS"
	ErrCodeIndexUnavailable  = "INDEX_UNAVAILABLE"
	ErrCodeCursorInvalid     = "CURSOR_INVALID"
	ErrCodeRateLimited       = "RATE_LIMITED"
	ErrCodeListingNotFound   = "LISTING_NOT_FOUND"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// ValidationError rejects a malformed request field before any cache or
// index work happens. Caller-visible.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// CursorInvalidError means the cursor does not match the current filter
// signature or has expired. The caller must restart pagination from the
// first page; it is never "no more results".
type CursorInvalidError struct {
	Reason string
}

func (e *CursorInvalidError) Error() string {
	return fmt.Sprintf("invalid cursor: %s", e.Reason)
}

func NewCursorInvalidError(reason string) *CursorInvalidError {
	return &CursorInvalidError{Reason: reason}
}

// ErrIndexUnavailable is surfaced as a retryable service error when the geo
// index cannot be queried. Never silently an empty result.
var ErrIndexUnavailable = errors.New("geo index unavailable")

// ErrListingNotFound is returned by the listing repository on a miss.
var ErrListingNotFound = errors.New("listing not found")

// ErrHoursUnknown is returned when a listing has no usable hours data.
var ErrHoursUnknown = errors.New("listing hours unknown")
