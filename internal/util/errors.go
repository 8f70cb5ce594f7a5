package util

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// Common error types for the coalesce CLI
var (
	// ErrInvalidConfig indicates a configuration error
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrSectionNotFound indicates a requested section is not configured
	ErrSectionNotFound = errors.New("section not found")

	// ErrUnknownCheck indicates a check kind that has no implementation
	ErrUnknownCheck = errors.New("unknown check kind")

	// ErrResultsFound is returned by a run that produced visible results.
	// The CLI maps it to exit code 1 without printing it.
	ErrResultsFound = errors.New("results found")
)

// CheckError wraps an error with the name of the check that caused it
type CheckError struct {
	Check string
	Err   error
}

// Error implements the error interface
func (e *CheckError) Error() string {
	return fmt.Sprintf("check %q: %v", e.Check, e.Err)
}

// Unwrap returns the wrapped error for errors.Is/As compatibility
func (e *CheckError) Unwrap() error {
	return e.Err
}

// WrapCheckError wraps an error with check context
func WrapCheckError(check string, err error) error {
	if err == nil {
		return nil
	}
	return &CheckError{
		Check: check,
		Err:   err,
	}
}

// MultiError aggregates multiple errors
type MultiError struct {
	Errors []error
}

// Error implements the error interface
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d errors occurred:", len(m.Errors)))
	for i, err := range m.Errors {
		if i < 10 { // Limit to first 10 errors in the message
			sb.WriteString(fmt.Sprintf("\n  %d. %v", i+1, err))
		} else if i == 10 {
			sb.WriteString(fmt.Sprintf("\n  ... and %d more errors", len(m.Errors)-10))
			break
		}
	}
	return sb.String()
}

// Unwrap returns the errors for errors.Is/As compatibility
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// Add adds an error to the multi-error
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// ErrorOrNil returns nil if no errors were added, otherwise returns the MultiError
func (m *MultiError) ErrorOrNil() error {
	if len(m.Errors) == 0 {
		return nil
	}
	return m
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	if v.Value != nil {
		return fmt.Sprintf("validation failed for field %q (value: %v): %s", v.Field, v.Value, v.Message)
	}
	return fmt.Sprintf("validation failed for field %q: %s", v.Field, v.Message)
}

// Unwrap ties validation failures to ErrInvalidConfig
func (v *ValidationError) Unwrap() error {
	return ErrInvalidConfig
}

// NewValidationError creates a new validation error
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// IsTimeout reports whether err comes from an expired deadline
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// IsCancelled reports whether err comes from a cancelled context
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSectionNotFound) || errors.Is(err, fs.ErrNotExist)
}

// IsPermissionError checks if an error is a permission error
func IsPermissionError(err error) bool {
	return errors.Is(err, fs.ErrPermission)
}

// FriendlyError converts technical errors to user-friendly messages
func FriendlyError(err error) string {
	if err == nil {
		return ""
	}

	// Check for known error types
	switch {
	case IsTimeout(err):
		return "Operation timed out. Please try again or increase the timeout value with --timeout flag."
	case IsCancelled(err):
		return "Operation was cancelled."
	case errors.Is(err, ErrSectionNotFound):
		return fmt.Sprintf("%v. Run 'coalesce sections' to list configured sections.", err)
	case IsNotFound(err):
		return fmt.Sprintf("Not found: %v.", err)
	case errors.Is(err, ErrUnknownCheck):
		return fmt.Sprintf("Unknown check kind (%v). Run 'coalesce sections --kinds' to list available kinds.", err)
	case IsPermissionError(err):
		return fmt.Sprintf("Permission denied: %v.", err)
	case errors.Is(err, ErrInvalidConfig):
		return fmt.Sprintf("Invalid configuration: %v. Please check your config file and command-line flags.", err)
	default:
		// Return the original error message for unknown errors
		return err.Error()
	}
}

// ErrorWithContext adds context to an error message
type ErrorWithContext struct {
	Err     error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *ErrorWithContext) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Err.Error())
	if len(e.Context) > 0 {
		sb.WriteString(" (")
		first := true
		for k, v := range e.Context {
			if !first {
				sb.WriteString(", ")
			}
			sb.WriteString(fmt.Sprintf("%s: %v", k, v))
			first = false
		}
		sb.WriteString(")")
	}
	return sb.String()
}

// Unwrap returns the wrapped error
func (e *ErrorWithContext) Unwrap() error {
	return e.Err
}

// AddContext adds context information to an error
func AddContext(err error, key string, value interface{}) error {
	if err == nil {
		return nil
	}

	// If already an ErrorWithContext, add to existing context
	var ctxErr *ErrorWithContext
	if errors.As(err, &ctxErr) {
		ctxErr.Context[key] = value
		return ctxErr
	}

	// Create new ErrorWithContext
	return &ErrorWithContext{
		Err:     err,
		Context: map[string]interface{}{key: value},
	}
}
