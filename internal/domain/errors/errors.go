package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the kind of a domain error
type ErrorType string

const (
	// ErrorTypeInvalidArgument marks a rejected network state: schema
	// violations, out-of-range values, missing inheritance sources and
	// conflicting mutually exclusive settings
	ErrorTypeInvalidArgument ErrorType = "INVALID_ARGUMENT"

	// ErrorTypeVerification marks a post-apply mismatch between desired and current state
	ErrorTypeVerification ErrorType = "VERIFICATION_ERROR"

	// ErrorTypeValidation marks invalid agent configuration
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeNotFound marks a missing resource
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeConflict marks a conflicting resource
	ErrorTypeConflict ErrorType = "CONFLICT"

	// ErrorTypeSystem marks a system level failure
	ErrorTypeSystem ErrorType = "SYSTEM"

	// ErrorTypeNetwork marks a failure talking to the network service
	ErrorTypeNetwork ErrorType = "NETWORK"

	// ErrorTypeTimeout marks a timed out operation
	ErrorTypeTimeout ErrorType = "TIMEOUT"
)

// DomainError is a typed error carrying a kind tag and a human readable message
type DomainError struct {
	Type    ErrorType
	Message string
	Cause   error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped cause
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is compares errors by kind
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// NewInvalidArgumentError creates an invalid argument error
func NewInvalidArgumentError(message string, cause error) *DomainError {
	return &DomainError{
		Type:    ErrorTypeInvalidArgument,
		Message: message,
		Cause:   cause,
	}
}

// InvalidArgumentf creates an invalid argument error from a format string
func InvalidArgumentf(format string, args ...interface{}) *DomainError {
	return &DomainError{
		Type:    ErrorTypeInvalidArgument,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewVerificationError creates a verification error
func NewVerificationError(message string) *DomainError {
	return &DomainError{
		Type:    ErrorTypeVerification,
		Message: message,
	}
}

// NewValidationError creates a configuration validation error
func NewValidationError(message string, cause error) *DomainError {
	return &DomainError{
		Type:    ErrorTypeValidation,
		Message: message,
		Cause:   cause,
	}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(message string) *DomainError {
	return &DomainError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewConflictError creates a conflict error
func NewConflictError(message string) *DomainError {
	return &DomainError{
		Type:    ErrorTypeConflict,
		Message: message,
	}
}

// NewSystemError creates a system error
func NewSystemError(message string, cause error) *DomainError {
	return &DomainError{
		Type:    ErrorTypeSystem,
		Message: message,
		Cause:   cause,
	}
}

// NewNetworkError creates a network error
func NewNetworkError(message string, cause error) *DomainError {
	return &DomainError{
		Type:    ErrorTypeNetwork,
		Message: message,
		Cause:   cause,
	}
}

// NewTimeoutError creates a timeout error
func NewTimeoutError(message string) *DomainError {
	return &DomainError{
		Type:    ErrorTypeTimeout,
		Message: message,
	}
}

func hasType(err error, t ErrorType) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == t
	}
	return false
}

// IsInvalidArgumentError reports whether err is an invalid argument error
func IsInvalidArgumentError(err error) bool {
	return hasType(err, ErrorTypeInvalidArgument)
}

// IsVerificationError reports whether err is a verification error
func IsVerificationError(err error) bool {
	return hasType(err, ErrorTypeVerification)
}

// IsValidationError reports whether err is a validation error
func IsValidationError(err error) bool {
	return hasType(err, ErrorTypeValidation)
}

// IsNotFoundError reports whether err is a not found error
func IsNotFoundError(err error) bool {
	return hasType(err, ErrorTypeNotFound)
}

// IsSystemError reports whether err is a system error
func IsSystemError(err error) bool {
	return hasType(err, ErrorTypeSystem)
}

// IsNetworkError reports whether err is a network error
func IsNetworkError(err error) bool {
	return hasType(err, ErrorTypeNetwork)
}

// IsTimeoutError reports whether err is a timeout error
func IsTimeoutError(err error) bool {
	return hasType(err, ErrorTypeTimeout)
}
