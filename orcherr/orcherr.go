// Package orcherr implements the closed error taxonomy raised by the
// orchestrator, middleware chain, and state layer. Every error the core
// surfaces to a caller wraps one of these codes so callers can classify
// failures without string matching.
package orcherr

import (
	"errors"
	"fmt"
)

// Code enumerates the closed set of error kinds the core can raise.
type Code string

const (
	// CodeProvider covers language-model HTTP/parse failures.
	CodeProvider Code = "provider"
	// CodeToolNotFound covers a registry miss for a requested tool name.
	CodeToolNotFound Code = "tool_not_found"
	// CodeToolExecution covers a failure returned by a tool's body.
	CodeToolExecution Code = "tool_execution"
	// CodeMiddleware covers a failure raised by any middleware hook.
	CodeMiddleware Code = "middleware"
	// CodeState covers a failure applying a state patch.
	CodeState Code = "state"
	// CodeAuth covers credential-layer failures; callers treat these as
	// CodeProvider for stop-reason classification purposes.
	CodeAuth Code = "auth"
)

// Error is the concrete error type carrying a Code, a human-readable
// message, and an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// New constructs an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap constructs an Error with the given code, message, and wrapped cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf extracts the Code from err, or "" if err does not wrap an *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
