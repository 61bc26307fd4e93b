// Package domainerrors defines the typed errors services return at module
// boundaries. Stores return sentinel errors; services translate them into one
// of these codes so transports can map status without inspecting internals.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	// CodeBadRequest marks malformed or invalid input (validation failures).
	CodeBadRequest Code = "bad_request"
	// CodeConflict marks a violated precondition on current state.
	CodeConflict Code = "conflict"
	// CodeNotFound marks a missing entity.
	CodeNotFound Code = "not_found"
	// CodeUnavailable marks an external dependency failure; callers may retry.
	CodeUnavailable Code = "unavailable"
	// CodeInternal marks persistence or programmer errors. Details are never
	// surfaced to clients.
	CodeInternal Code = "internal_error"
)

// Error carries a code and a caller-facing message alongside the wrapped cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a domain error without an underlying cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf extracts the code from err, defaulting to CodeInternal for untyped
// errors so unexpected failures never leak as client faults.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	return errors.As(err, &de) && de.Code == code
}

// MessageOf returns the caller-facing message, empty for untyped errors.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}
