// Package apperr defines the error taxonomy shared by the broadcast core,
// its storage layer and its transports.
//
// Every rejection the core returns to a caller is an *Error carrying a Code
// (the category) and a Reason (the specific, user-facing rule). Callers
// branch with errors.Is against the sentinel values below or with CodeOf.
package apperr

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Code represents the category of a failure.
// Codes are strings for debuggability and natural JSON serialization.
type Code string

const (
	// CodeInvalidInput indicates malformed input (body length, bad date,
	// missing field, unknown status).
	CodeInvalidInput Code = "INVALID_INPUT"

	// CodeForbidden indicates the caller's role or ownership does not allow
	// the operation.
	CodeForbidden Code = "FORBIDDEN"

	// CodeBusinessRule indicates the request is well formed and authorized
	// but violates a domain rule.
	CodeBusinessRule Code = "BUSINESS_RULE"

	// CodeNotFound indicates the referenced entity does not exist in the
	// caller's scope.
	CodeNotFound Code = "NOT_FOUND"

	// CodeDependency indicates a non-critical collaborator (push transport,
	// audit sink) failed.
	CodeDependency Code = "DEPENDENCY_FAILURE"

	// CodeInternal indicates an unexpected failure, usually storage.
	CodeInternal Code = "INTERNAL_ERROR"
)

// Error is a categorized failure with a stable reason key.
type Error struct {
	Code    Code
	Reason  string
	Message string

	// Fields holds per-field validation detail, keyed by input field name.
	Fields map[string]string

	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if len(e.Fields) > 0 {
		b.WriteString(" (")
		first := true
		for _, k := range slices.Sorted(maps.Keys(e.Fields)) {
			if !first {
				b.WriteString("; ")
			}
			first = false
			fmt.Fprintf(&b, "%s: %s", k, e.Fields[k])
		}
		b.WriteString(")")
	}
	if e.cause != nil {
		fmt.Fprintf(&b, ": %v", e.cause)
	}
	return b.String()
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches two *Error values with equal code and reason, so sentinels
// compare equal to errors derived from them with With or Wrap.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code && e.Reason == t.Reason
}

// With returns a copy of e with a more specific message.
func (e *Error) With(format string, args ...any) *Error {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

// Wrap returns a copy of e that records cause.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.cause = cause
	return &cp
}

// New creates an error with the given code and reason.
func New(code Code, reason, message string) *Error {
	return &Error{Code: code, Reason: reason, Message: message}
}

// Validation creates an INVALID_INPUT error with per-field detail.
func Validation(fields map[string]string) *Error {
	return &Error{
		Code:    CodeInvalidInput,
		Reason:  "validation_failed",
		Message: "invalid input",
		Fields:  fields,
	}
}

// Internal wraps an unexpected error.
func Internal(op string, err error) *Error {
	return &Error{Code: CodeInternal, Reason: "internal", Message: op, cause: err}
}

// CodeOf returns the code of the first *Error in err's chain,
// or CodeInternal when there is none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// ReasonOf returns the reason of the first *Error in err's chain.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
