package review

import (
	"errors"
	"fmt"

	"github.com/roach88/cadence/internal/period"
	"github.com/roach88/cadence/internal/schema"
)

// Code categorizes review workflow errors.
type Code string

const (
	// CodeUnauthenticated means no owner identity was present. The
	// operation is aborted before any store access.
	CodeUnauthenticated Code = "UNAUTHENTICATED"

	// CodeValidationFailed means a field was missing, empty, too long or
	// unknown. Nothing was written.
	CodeValidationFailed Code = "VALIDATION_FAILED"

	// CodeNotFound means a record the operation depends on (the profile of
	// an annual submission) does not exist.
	CodeNotFound Code = "NOT_FOUND"

	// CodeStoreUnavailable means the store failed. Not retried.
	CodeStoreUnavailable Code = "STORE_UNAVAILABLE"

	// CodeConsistency means the one-record-per-period invariant was found
	// violated.
	CodeConsistency Code = "CONSISTENCY"
)

// Error is the error type returned by the review workflow.
type Error struct {
	Code    Code
	Message string

	// Fields lists per-field violations for CodeValidationFailed.
	Fields []schema.Violation

	// Cause is the wrapped underlying error, if any.
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error by code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// NewError creates an Error without a cause.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError creates an Error wrapping cause.
func WrapError(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// NewValidationError reports field violations for a cadence.
func NewValidationError(c period.Cadence, violations []schema.Violation) *Error {
	return &Error{
		Code:    CodeValidationFailed,
		Message: fmt.Sprintf("%s review has %d invalid field(s)", c, len(violations)),
		Fields:  violations,
	}
}

// ErrUnauthenticated is returned when no owner is present.
var ErrUnauthenticated = NewError(CodeUnauthenticated, "no authenticated owner")

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsUnauthenticated reports whether err carries CodeUnauthenticated.
func IsUnauthenticated(err error) bool { return CodeOf(err) == CodeUnauthenticated }

// IsValidation reports whether err carries CodeValidationFailed.
func IsValidation(err error) bool { return CodeOf(err) == CodeValidationFailed }

// IsNotFound reports whether err carries CodeNotFound.
func IsNotFound(err error) bool { return CodeOf(err) == CodeNotFound }

// IsStoreUnavailable reports whether err carries CodeStoreUnavailable.
func IsStoreUnavailable(err error) bool { return CodeOf(err) == CodeStoreUnavailable }

// IsConsistency reports whether err carries CodeConsistency.
func IsConsistency(err error) bool { return CodeOf(err) == CodeConsistency }
