package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeNotFound covers notes, embeddings and relationships that are
	// missing or not owned by the caller
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeDimensions represents vectors of different lengths being compared
	ErrorTypeDimensions ErrorType = "dimensions"
	// ErrorTypeProvider represents embedding provider failures
	ErrorTypeProvider ErrorType = "provider"
	// ErrorTypeValidation represents rejected input
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeStorage represents database errors
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// ErrorType reports the category. Typed errors embedding *BaseError inherit it.
func (e *BaseError) ErrorType() ErrorType {
	return e.Type
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// ErrNotFound is returned when a referenced entity does not exist or belongs
// to another owner
type ErrNotFound struct {
	*BaseError
	Entity string
	ID     string
}

func NewNotFound(entity, id string) *ErrNotFound {
	return &ErrNotFound{
		BaseError: NewBaseError(ErrorTypeNotFound, fmt.Sprintf("%s not found: %s", entity, id), nil),
		Entity:    entity,
		ID:        id,
	}
}

// ErrIncompatibleDimensions signals a similarity request between vectors of
// different lengths. It is raised by panic, never returned.
type ErrIncompatibleDimensions struct {
	*BaseError
	Left  int
	Right int
}

func NewIncompatibleDimensions(left, right int) *ErrIncompatibleDimensions {
	return &ErrIncompatibleDimensions{
		BaseError: NewBaseError(ErrorTypeDimensions, fmt.Sprintf("incompatible vector dimensions: %d vs %d", left, right), nil),
		Left:      left,
		Right:     right,
	}
}

// ErrProviderFailed is returned when the embedding provider call fails
type ErrProviderFailed struct {
	*BaseError
	Provider  string
	Retryable bool
}

func NewProviderFailed(provider string, retryable bool, err error) *ErrProviderFailed {
	return &ErrProviderFailed{
		BaseError: NewBaseError(ErrorTypeProvider, fmt.Sprintf("embedding provider %s failed", provider), err),
		Provider:  provider,
		Retryable: retryable,
	}
}

// ErrValidation is returned for input that cannot be corrected by clamping
type ErrValidation struct {
	*BaseError
	Field string
}

func NewValidation(field, reason string) *ErrValidation {
	return &ErrValidation{
		BaseError: NewBaseError(ErrorTypeValidation, fmt.Sprintf("invalid %s: %s", field, reason), nil),
		Field:     field,
	}
}

// ErrStorage wraps database failures
type ErrStorage struct {
	*BaseError
	Operation string
}

func NewStorage(operation string, err error) *ErrStorage {
	return &ErrStorage{
		BaseError: NewBaseError(ErrorTypeStorage, fmt.Sprintf("storage operation %s failed", operation), err),
		Operation: operation,
	}
}

// ErrConfigValidationFailed is returned when configuration validation fails
type ErrConfigValidationFailed struct {
	*BaseError
	Field string
}

func NewConfigValidationFailed(field, reason string) *ErrConfigValidationFailed {
	return &ErrConfigValidationFailed{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("invalid config %s: %s", field, reason), nil),
		Field:     field,
	}
}

// Helper functions

// IsErrorType checks if an error, or anything it wraps, is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	var typed interface{ ErrorType() ErrorType }
	for err != nil {
		if !stderrors.As(err, &typed) {
			return false
		}
		if typed.ErrorType() == errType {
			return true
		}
		// Typed errors promote BaseError.Unwrap, which skips the BaseError
		// itself, so step past it explicitly.
		err = stderrors.Unwrap(typed.(error))
	}
	return false
}

// IsNotFound reports whether err is a NotFound error
func IsNotFound(err error) bool {
	return IsErrorType(err, ErrorTypeNotFound)
}

// IsValidation reports whether err is a validation error
func IsValidation(err error) bool {
	return IsErrorType(err, ErrorTypeValidation)
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var providerErr *ErrProviderFailed
	if stderrors.As(err, &providerErr) {
		return providerErr.Retryable
	}
	return IsErrorType(err, ErrorTypeStorage)
}
