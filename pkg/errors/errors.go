package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different types of errors in the system
type ErrorType string

const (
	// ErrorTypeNotFound indicates a resource was not found
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeValidation indicates a validation error
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeConflict indicates a conflict with existing data
	ErrorTypeConflict ErrorType = "CONFLICT"

	// ErrorTypeUnauthorized indicates unauthorized access
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"

	// ErrorTypeInternal indicates an internal server error
	ErrorTypeInternal ErrorType = "INTERNAL"

	// ErrorTypeExternal indicates an error from external service
	ErrorTypeExternal ErrorType = "EXTERNAL"

	// ErrorTypeTimeout indicates a collaborator did not answer in time
	ErrorTypeTimeout ErrorType = "TIMEOUT"

	// ErrorTypeFatal indicates the process cannot start or continue
	ErrorTypeFatal ErrorType = "FATAL"
)

// Sentinel errors used for classification with errors.Is.
var (
	ErrCorpusUnavailable = errors.New("keyword corpus unavailable")
	ErrNoMoreMatches     = errors.New("no more matches")
	ErrSeedFailed        = errors.New("seed query failed")
	ErrRunNotFound       = errors.New("research run not found")
)

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

func newError(t ErrorType, message string, err error) *AppError {
	return &AppError{Type: t, Message: message, Err: err}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError { return newError(ErrorTypeNotFound, message, nil) }

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return newError(ErrorTypeValidation, message, nil)
}

func NewConflictError(message string) *AppError { return newError(ErrorTypeConflict, message, nil) }

// NewInternalError wraps err as an internal failure
func NewInternalError(message string, err error) *AppError {
	return newError(ErrorTypeInternal, message, err)
}

// NewExternalError wraps a failure reported by a collaborator (embedding
// model, text generator, search engine)
func NewExternalError(message string, err error) *AppError {
	return newError(ErrorTypeExternal, message, err)
}

// NewTimeoutError wraps a collaborator that did not answer in time
func NewTimeoutError(message string, err error) *AppError {
	return newError(ErrorTypeTimeout, message, err)
}

// NewFatalError creates an error that should abort startup
func NewFatalError(message string, err error) *AppError {
	return newError(ErrorTypeFatal, message, err)
}

// Is matches another *AppError by type, so errors.Is(err, &AppError{Type: ErrorTypeTimeout})
// classifies without unwrapping by hand
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Message == "" && t.Err == nil && t.Type == e.Type
}

// TypeOf returns the ErrorType of the first AppError in the chain, or
// ErrorTypeInternal when err carries none.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}
