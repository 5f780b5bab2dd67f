// Package errors provides structured error types for growtree.
//
// Two families of codes live here:
//
//   - Error codes for failures that are returned to callers: malformed graph
//     documents, unreadable files, unreachable Neo4j or Redis servers.
//   - Diagnostic codes for the non-fatal conditions raised while a run is in
//     progress. These are never returned as errors; the scheduler records them
//     as [Diagnostic] values and keeps going.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidInput, "unknown category %q", c)
//	if errors.Is(err, errors.ErrCodeInvalidInput) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeNetwork, origErr, "connect %s", uri)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for failures returned to callers.
const (
	// Input validation errors
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidDocument Code = "INVALID_DOCUMENT"
	ErrCodeInvalidFormat   Code = "INVALID_FORMAT"
	ErrCodeInvalidConfig   Code = "INVALID_CONFIG"

	// Resource not found errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Network errors
	ErrCodeNetwork     Code = "NETWORK_ERROR"
	ErrCodeTimeout     Code = "TIMEOUT"
	ErrCodeRateLimited Code = "RATE_LIMITED"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Diagnostic codes for conditions handled inside a run.
const (
	// DiagMissingParent: a primary candidate's parent is not visible yet.
	DiagMissingParent Code = "MISSING_PARENT"
	// DiagMissingPrimarySource: a Primary-tagged source is not visible yet.
	DiagMissingPrimarySource Code = "MISSING_PRIMARY_SOURCE"
	// DiagMissingDerivedSource: a Derived-tagged source has not been placed.
	DiagMissingDerivedSource Code = "MISSING_DERIVED_SOURCE"
	// DiagUnresolvableDependency: the resolver excluded the node (cycle or
	// missing definition).
	DiagUnresolvableDependency Code = "UNRESOLVABLE_DEPENDENCY"
	// DiagPlacementExhausted: the spiral search ran out of attempts and a
	// fallback position was used.
	DiagPlacementExhausted Code = "PLACEMENT_EXHAUSTED"
	// DiagDeferralLimit: a candidate hit the configured deferral cap and was
	// dropped from the run.
	DiagDeferralLimit Code = "DEFERRAL_LIMIT"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// Diagnostic records a non-fatal condition observed during a run.
// The only externally visible effect of such a condition is that a node or
// an edge does not appear (or appears at an approximate position).
type Diagnostic struct {
	Code   Code   `json:"code"`
	NodeID string `json:"node_id"`
	Detail string `json:"detail,omitempty"`
}

// String renders the diagnostic as "CODE node: detail".
func (d Diagnostic) String() string {
	if d.Detail == "" {
		return fmt.Sprintf("%s %s", d.Code, d.NodeID)
	}
	return fmt.Sprintf("%s %s: %s", d.Code, d.NodeID, d.Detail)
}
