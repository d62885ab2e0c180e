// Package apperrors defines the application's structured error types and
// exit codes. Each error class carries its underlying cause where one
// exists, and every wrapping type implements Unwrap so errors.Is and
// errors.As see through it.
package apperrors

import (
	"context"
	"errors"
	"fmt"
)

// Exit codes reported to the operating system. ExitCanceled follows
// the 128+SIGINT shell convention.
const (
	ExitOK        = 0
	ExitFailure   = 1
	ExitTimeout   = 2
	ExitMismatch  = 3 // backends disagreed on a product
	ExitBadConfig = 4
	ExitCanceled  = 130
)

// ConfigError reports invalid flags or flag combinations. It means the
// program cannot proceed with what the user asked for.
type ConfigError struct {
	Msg string
}

func (e ConfigError) Error() string { return e.Msg }

// NewConfigError builds a ConfigError from a format string.
func NewConfigError(format string, args ...any) error {
	return ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// ValidationError reports a rejected input value, from either the API
// request path or configuration validation.
type ValidationError struct {
	Field string // offending input, empty when unknown
	Msg   string
	Value any // rejected value, kept for diagnostics
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid input: %s", e.Msg)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

// NewValidationError builds a ValidationError for one field.
func NewValidationError(field, msg string, value any) error {
	return ValidationError{Field: field, Msg: msg, Value: value}
}

// ComputeError marks a failure inside a multiplication backend, including
// context cancellation surfacing mid-calculation. The cause is preserved
// so callers can distinguish timeouts from genuine arithmetic failures.
type ComputeError struct {
	Err error
}

func (e ComputeError) Error() string { return e.Err.Error() }

func (e ComputeError) Unwrap() error { return e.Err }

// ServerError reports an HTTP server failure with the operation that
// triggered it.
type ServerError struct {
	Msg string
	Err error
}

func (e ServerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e ServerError) Unwrap() error { return e.Err }

// NewServerError builds a ServerError. cause may be nil.
func NewServerError(msg string, cause error) error {
	return ServerError{Msg: msg, Err: cause}
}

// WrapError prefixes err with a formatted message using %w, keeping the
// chain intact for errors.Is and errors.As. A nil err stays nil.
func WrapError(err error, format string, a ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, a...), err)
}

// IsContextError reports whether err is a cancellation or deadline error,
// possibly wrapped.
func IsContextError(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
