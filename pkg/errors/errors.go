// Package errors provides structured errors with codes and context for
// ArenaFlow. Resolution failures are per-record recoverable; batch
// callers record the reason and continue.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code identifies an error class for programmatic handling.
type Code string

const (
	// Input errors (1xx)
	CodeLogUnreadable    Code = "E101"
	CodeIndexUnreadable  Code = "E102"
	CodeInvalidTimestamp Code = "E103"

	// Resolution errors (2xx)
	CodeNoBoundaryMarkers Code = "E201"
	CodeNoConfidentMatch  Code = "E202"

	// Output errors (3xx)
	CodeSinkFailed Code = "E301"

	// System errors (4xx)
	CodeContextCanceled Code = "E401"

	// Unknown
	CodeUnknown Code = "E999"
)

// Error is the base error type for all ArenaFlow errors.
type Error struct {
	Code    Code
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if len(e.Context) > 0 {
		sb.WriteString(" (")
		first := true
		for k, v := range e.Context {
			if !first {
				sb.WriteString(", ")
			}
			sb.WriteString(fmt.Sprintf("%s=%v", k, v))
			first = false
		}
		sb.WriteString(")")
	}

	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}

	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithContext adds a context key to the error.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap wraps an existing error with a code and message.
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Cause: err}
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, code Code, format string, args ...interface{}) *Error {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// --- Convenience constructors for the resolution failure surface ---

// NoBoundaryMarkers indicates the extended window held no session
// markers at all.
func NoBoundaryMarkers(record string) *Error {
	return New(CodeNoBoundaryMarkers, "no session boundary markers in search window").
		WithContext("record", record)
}

// NoConfidentMatch indicates markers exist but no candidate cleared
// the viability bar.
func NoConfidentMatch(record string, candidates int) *Error {
	return New(CodeNoConfidentMatch, "no candidate interval cleared the confidence bar").
		WithContext("record", record).
		WithContext("candidates", candidates)
}

// LogUnreadable indicates the log file could not be opened or read.
func LogUnreadable(path string, err error) *Error {
	return Wrap(err, CodeLogUnreadable, "combat log unreadable").
		WithContext("path", path)
}

// ContextCanceled indicates the surrounding context was canceled.
func ContextCanceled(operation string) *Error {
	return New(CodeContextCanceled, "operation canceled").
		WithContext("operation", operation)
}

// --- Error checking utilities ---

// IsCode checks if an error carries a specific code.
func IsCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the code from an error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsUnresolved reports whether an error is a recoverable per-record
// resolution failure rather than a systemic one.
func IsUnresolved(err error) bool {
	switch GetCode(err) {
	case CodeNoBoundaryMarkers, CodeNoConfidentMatch, CodeLogUnreadable:
		return true
	default:
		return false
	}
}
