// Package clierr defines structured error types for the multibuild CLI.
// Errors carry a machine-readable code, a human-readable message,
// and optional details for JSON consumers.
package clierr

import (
	"fmt"
	"strconv"
)

// Error code constants. Uppercase, underscore-separated, stable across minor versions.
const (
	InvalidInput    = "INVALID_INPUT"
	StagingNotClean = "STAGING_NOT_CLEAN"
	StagingLocked   = "STAGING_LOCKED"
	NameCollision   = "NAME_COLLISION"
	SetupFailed     = "SETUP_FAILED"
	InternalError   = "INTERNAL_ERROR"
)

// Process exit statuses used before any build result exists.
const (
	ExitGeneral  = 1
	ExitInternal = 2
	ExitSetup    = 3
)

// Error represents a structured CLI error with a machine-readable code.
type Error struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string { return e.Message }

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.Err }

// New creates an Error with the given code and message.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error whose message is prefix followed by err.
func Wrap(code string, err error, prefix string) *Error {
	return &Error{Code: code, Message: prefix + ": " + err.Error(), Err: err}
}

// WithDetails returns the error with the given details map attached.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// IsSetup reports whether the code identifies a startup validation failure.
func (e *Error) IsSetup() bool {
	switch e.Code {
	case InvalidInput, StagingNotClean, StagingLocked, NameCollision, SetupFailed:
		return true
	}
	return false
}

// ExitCode returns ExitSetup for setup failures, ExitInternal for
// InternalError and ExitGeneral for everything else.
func (e *Error) ExitCode() int {
	switch {
	case e.IsSetup():
		return ExitSetup
	case e.Code == InternalError:
		return ExitInternal
	}
	return ExitGeneral
}

// SilentError signals an exit code without additional output. The build
// tool's own exit status travels this way.
type SilentError struct {
	Code int
}

// Error implements the error interface.
func (e *SilentError) Error() string { return "exit " + strconv.Itoa(e.Code) }
