package errors

import (
	"fmt"
)

// CrossError is the structured error type for CrossEverything.
// It provides rich context for error handling, logging, and the wire
// boundary.
type CrossError struct {
	// Code is the unique error code (e.g., "ERR_504_INDEX_NOT_READY").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error
}

// Error implements the error interface.
func (e *CrossError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *CrossError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with CrossError.
func (e *CrossError) Is(target error) bool {
	if t, ok := target.(*CrossError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *CrossError) WithDetail(key, value string) *CrossError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new CrossError with the given code and message.
// Category and severity are derived from the code.
func New(code string, message string, cause error) *CrossError {
	return &CrossError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Wrap creates a CrossError from an existing error.
// The error's message becomes the CrossError message.
func Wrap(code string, err error) *CrossError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *CrossError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *CrossError {
	return New(ErrCodeInternal, message, cause)
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if ce, ok := err.(*CrossError); ok {
		return ce.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a CrossError.
// Returns empty string if not a CrossError.
func GetCode(err error) string {
	if ce, ok := err.(*CrossError); ok {
		return ce.Code
	}
	return ""
}

// GetCategory extracts the category from a CrossError.
// Returns empty string if not a CrossError.
func GetCategory(err error) Category {
	if ce, ok := err.(*CrossError); ok {
		return ce.Category
	}
	return ""
}
