package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the category of a failure
type ErrorType string

const (
	ErrorTypeUnreachable  ErrorType = "unreachable"
	ErrorTypePersistence  ErrorType = "persistence"
	ErrorTypeBrowser      ErrorType = "browser"
	ErrorTypeProtocol     ErrorType = "protocol"
	ErrorTypeConfig       ErrorType = "config"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeInvalidInput ErrorType = "invalid_input"
	ErrorTypeUnknown      ErrorType = "unknown"
)

// Error carries a type alongside the message and an optional cause
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same type, so callers can test
// errors.Is(err, &Error{Type: ErrorTypeUnreachable}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// New creates a typed error
func New(t ErrorType, msg string) *Error {
	return &Error{Type: t, Message: msg}
}

// Wrap creates a typed error around a cause
func Wrap(t ErrorType, msg string, cause error) *Error {
	return &Error{Type: t, Message: msg, Cause: cause}
}

// TypeOf returns the type of the first *Error in the chain
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsType reports whether err carries the given type
func IsType(err error, t ErrorType) bool {
	return err != nil && TypeOf(err) == t
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeBrowser:
		return true
	case ErrorTypeUnreachable, ErrorTypePersistence, ErrorTypeProtocol,
		ErrorTypeConfig, ErrorTypeNotFound, ErrorTypeInvalidInput:
		return false
	default:
		return false
	}
}
