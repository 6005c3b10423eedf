// Package errors provides standardized error handling for the client.
// It defines the error taxonomy surfaced to callers (validation, decoding,
// HTTP status outcomes, connection loss), error classification for retry
// decisions, and helpers for consistent error wrapping across packages.
package errors

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ChristopherJHart/disnake/pkg/retry"
)

// ErrorClass represents the classification of errors for handling purposes
type ErrorClass int

const (
	// ErrorTransient represents temporary errors that may be retried
	ErrorTransient ErrorClass = iota
	// ErrorInvalid represents errors due to invalid input or payloads
	ErrorInvalid
	// ErrorFatal represents unrecoverable errors that should stop processing
	ErrorFatal
)

// String returns the string representation of ErrorClass
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorTransient:
		return "transient"
	case ErrorInvalid:
		return "invalid"
	case ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions
var (
	// HTTP status outcomes, surfaced 1:1 from the remote service
	ErrNotFound    = errors.New("resource not found")
	ErrForbidden   = errors.New("missing permissions")
	ErrRateLimited = errors.New("rate limited")
	ErrServerError = errors.New("remote service error")

	// Gateway connection errors
	ErrConnectionLost   = errors.New("gateway connection lost")
	ErrHandshakeFailed  = errors.New("gateway handshake failed")
	ErrAlreadyConnected = errors.New("session already connected")
	ErrNotConnected     = errors.New("session not connected")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingToken  = errors.New("missing authentication token")

	// Lifecycle errors
	ErrAlreadyStarted = errors.New("client already started")
	ErrNotStarted     = errors.New("client not started")
	ErrShuttingDown   = errors.New("client is shutting down")
)

// ValidationError reports a locally invalid rule spec or request parameter.
// It is always raised before any network call is attempted.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface
func (ve *ValidationError) Error() string {
	if ve.Field == "" {
		return fmt.Sprintf("validation failed: %s", ve.Message)
	}
	return fmt.Sprintf("validation failed on %q: %s", ve.Field, ve.Message)
}

// NewValidation creates a ValidationError for the given field
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is (or wraps) a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// DecodingError reports that a single field of a server payload could not be
// converted to its declared type. It is non-fatal at the entry level: sibling
// fields remain consumable by callers.
type DecodingError struct {
	Field string
	Value any
	Err   error
}

// Error implements the error interface
func (de *DecodingError) Error() string {
	return fmt.Sprintf("cannot decode field %q (value %v): %v", de.Field, de.Value, de.Err)
}

// Unwrap returns the underlying error
func (de *DecodingError) Unwrap() error {
	return de.Err
}

// NewDecoding creates a DecodingError for the given field and raw value
func NewDecoding(field string, value any, err error) *DecodingError {
	return &DecodingError{Field: field, Value: value, Err: err}
}

// IsDecoding reports whether err is (or wraps) a DecodingError
func IsDecoding(err error) bool {
	var de *DecodingError
	return errors.As(err, &de)
}

// ClassifiedError wraps an error with its classification
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// IsTransient checks if an error is transient and should be retried
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorTransient
	}

	return errors.Is(err, ErrConnectionLost) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrServerError) ||
		errors.Is(err, context.DeadlineExceeded)
}

// IsFatal checks if an error is fatal and should stop processing
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorFatal
	}

	return errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingToken) ||
		errors.Is(err, ErrHandshakeFailed)
}

// IsInvalid checks if an error is due to invalid input or payloads
func IsInvalid(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorInvalid
	}

	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrForbidden) ||
		IsValidation(err) ||
		IsDecoding(err)
}

// Classify returns the error class for an error
func Classify(err error) ErrorClass {
	if IsFatal(err) {
		return ErrorFatal
	}
	if IsInvalid(err) {
		return ErrorInvalid
	}
	// Default to transient for unknown errors to allow retry
	return ErrorTransient
}

// newClassified creates a new classified error
// This is an internal helper - use WrapTransient(), WrapFatal(), or WrapInvalid() instead.
func newClassified(class ErrorClass, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{
		Class:     class,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapTransient wraps an error as transient with context
func WrapTransient(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorTransient, wrappedErr, component, method, wrappedErr.Error())
}

// WrapFatal wraps an error as fatal with context
func WrapFatal(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorFatal, wrappedErr, component, method, wrappedErr.Error())
}

// WrapInvalid wraps an error as invalid with context
func WrapInvalid(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorInvalid, wrappedErr, component, method, wrappedErr.Error())
}

// RetryConfig defines configuration for retry operations
type RetryConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig returns a sensible default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
	}
}

// ShouldRetry determines if an error should be retried based on config
func (rc RetryConfig) ShouldRetry(err error, attempt int) bool {
	if err == nil || attempt >= rc.MaxRetries {
		return false
	}
	return IsTransient(err)
}

// ToRetryConfig converts RetryConfig to the retry framework's Config type.
// The conversion adds 1 to MaxRetries (converting "additional attempts" to
// "total attempts") and enables jitter by default.
func (rc RetryConfig) ToRetryConfig() retry.Config {
	return retry.Config{
		MaxAttempts:  rc.MaxRetries + 1,
		InitialDelay: rc.InitialDelay,
		MaxDelay:     rc.MaxDelay,
		Multiplier:   rc.BackoffFactor,
		AddJitter:    true,
	}
}
