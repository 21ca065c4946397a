// Package errors defines custom error types for FilePulse
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// WatchInitError indicates the directory watch could not be established
	WatchInitError ErrorType = "watch_init"
	// NotificationResolutionError indicates a single notification could not be translated
	NotificationResolutionError ErrorType = "notification_resolution"
	// PersistError indicates a store write or read failed
	PersistError ErrorType = "persist"
	// QueryError indicates malformed query input
	QueryError ErrorType = "query"
	// UsageError indicates an API was called in the wrong state
	UsageError ErrorType = "usage"
	// ConfigError indicates configuration issues
	ConfigError ErrorType = "config"
	// ValidationError indicates input validation issues
	ValidationError ErrorType = "validation"
)

// ErrAlreadyRunning is returned by Start on a watcher that is already watching
var ErrAlreadyRunning = New(UsageError, "watcher is already running", nil)

// FilePulseError is the base error type for all FilePulse errors
type FilePulseError struct {
	Type      ErrorType
	Message   string
	Err       error
	Retryable bool
	Context   map[string]interface{}
}

// Error implements the error interface
func (e *FilePulseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *FilePulseError) Unwrap() error {
	return e.Err
}

// IsRetryable returns whether the error is retryable
func (e *FilePulseError) IsRetryable() bool {
	return e.Retryable
}

// WithContext adds context to the error
func (e *FilePulseError) WithContext(key string, value interface{}) *FilePulseError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new FilePulseError
func New(errType ErrorType, message string, err error) *FilePulseError {
	return &FilePulseError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// NewRetryable creates a new retryable FilePulseError
func NewRetryable(errType ErrorType, message string, err error) *FilePulseError {
	return &FilePulseError{
		Type:      errType,
		Message:   message,
		Err:       err,
		Retryable: true,
	}
}

// TypeOf returns the ErrorType of the first FilePulseError in err's chain
func TypeOf(err error) (ErrorType, bool) {
	var fe *FilePulseError
	if stderrors.As(err, &fe) {
		return fe.Type, true
	}
	return "", false
}

func isType(err error, t ErrorType) bool {
	got, ok := TypeOf(err)
	return ok && got == t
}

// IsWatchInitError checks if the error is a watch initialization error
func IsWatchInitError(err error) bool {
	return isType(err, WatchInitError)
}

// IsNotificationResolutionError checks if the error is a notification resolution error
func IsNotificationResolutionError(err error) bool {
	return isType(err, NotificationResolutionError)
}

// IsPersistError checks if the error is a persistence error
func IsPersistError(err error) bool {
	return isType(err, PersistError)
}

// IsQueryError checks if the error is a query input error
func IsQueryError(err error) bool {
	return isType(err, QueryError)
}

// IsUsageError checks if the error is a usage error
func IsUsageError(err error) bool {
	return isType(err, UsageError)
}

// IsConfigError checks if the error is a configuration error
func IsConfigError(err error) bool {
	return isType(err, ConfigError)
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	return isType(err, ValidationError)
}

// Constructor functions for each error type

// NewWatchInitError creates a new watch initialization error
func NewWatchInitError(message string, err error) *FilePulseError {
	return New(WatchInitError, message, err)
}

// NewNotificationResolutionError creates a new notification resolution error
func NewNotificationResolutionError(message string, err error) *FilePulseError {
	return New(NotificationResolutionError, message, err)
}

// NewPersistError creates a new persistence error. The caller may retry the
// whole batch.
func NewPersistError(message string, err error) *FilePulseError {
	return NewRetryable(PersistError, message, err)
}

// NewQueryError creates a new query input error
func NewQueryError(message string, err error) *FilePulseError {
	return New(QueryError, message, err)
}

// NewUsageError creates a new usage error
func NewUsageError(message string, err error) *FilePulseError {
	return New(UsageError, message, err)
}

// NewConfigError creates a new configuration error
func NewConfigError(message string, err error) *FilePulseError {
	return New(ConfigError, message, err)
}

// NewValidationError creates a new validation error
func NewValidationError(message string, err error) *FilePulseError {
	return New(ValidationError, message, err)
}
