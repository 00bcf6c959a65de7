// Package errors provides structured error types for canvasflow.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI and the HTTP API
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures
//   - NOT_FOUND_*: Resource not found
//   - UPSTREAM_* / TIMEOUT: Failures at the provider boundary
//   - INTERNAL_*: Unexpected internal errors
//
// Recoverable conditions in the content pipeline (malformed or unknown action
// markers, exhausted placement searches, degenerate sizes) never produce an
// error; only provider failures and invalid caller input do.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidStrategy, "unknown strategy: %s", name)
//	if errors.Is(err, errors.ErrCodeInvalidStrategy) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeUpstream, origErr, "provider request failed")
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code is a machine-readable error code. Codes starting with "INVALID_"
// describe caller mistakes; see [Code.Invalid].
type Code string

const (
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidStrategy Code = "INVALID_STRATEGY"
	ErrCodeInvalidKind     Code = "INVALID_KIND"
	ErrCodeInvalidColor    Code = "INVALID_COLOR"
	ErrCodeInvalidRole     Code = "INVALID_ROLE"
	ErrCodeInvalidConfig   Code = "INVALID_CONFIG"

	ErrCodeNotFound        Code = "NOT_FOUND"
	ErrCodeSessionNotFound Code = "SESSION_NOT_FOUND"

	// The provider answered with a failure or could not be reached.
	ErrCodeUpstream Code = "UPSTREAM_PROVIDER"
	// The provider did not answer within the turn timeout.
	ErrCodeTimeout Code = "TIMEOUT"

	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Invalid reports whether c describes invalid caller input or configuration.
func (c Code) Invalid() bool { return strings.HasPrefix(string(c), "INVALID_") }

// NotFound reports whether c describes a missing resource.
func (c Code) NotFound() bool { return strings.HasSuffix(string(c), "NOT_FOUND") }

// Upstream reports whether c describes a provider failure, timeouts included.
func (c Code) Upstream() bool { return c == ErrCodeUpstream || c == ErrCodeTimeout }

// Error is a structured error with a code and an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error around cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether the first *Error in err's chain has the given code.
func Is(err error, code Code) bool {
	return GetCode(err) == code
}

// GetCode returns the code of the first *Error in err's chain, or "" when
// there is none.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns err without the code prefix: the message, then the
// cause if any. Other errors are returned as-is.
func UserMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// IsUpstream reports whether err originated at the provider boundary.
func IsUpstream(err error) bool { return GetCode(err).Upstream() }

// IsInvalid reports whether err was caused by invalid input or configuration.
func IsInvalid(err error) bool { return GetCode(err).Invalid() }
