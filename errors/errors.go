package errors

import (
	"errors"
	"fmt"
)

// Error is a classified error carrying an ErrorCode, the operation that
// produced it, and an optional wrapped cause. It supports errors.Is and
// errors.As through Unwrap.
type Error struct {
	// Code classifies the failure.
	Code ErrorCode

	// Op names the operation that failed (e.g. "artifact.Get").
	Op string

	// Msg is the human-readable description.
	Msg string

	// Err is the wrapped cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	default:
		return e.Msg
	}
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error with no cause.
func New(code ErrorCode, op, msg string) *Error {
	return &Error{Code: code, Op: op, Msg: msg}
}

// Newf creates a classified error with a formatted message.
func Newf(code ErrorCode, op, format string, args ...any) *Error {
	return &Error{Code: code, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies an existing error. Returns nil if err is nil.
func Wrap(err error, code ErrorCode, op, msg string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Op: op, Msg: msg, Err: err}
}

// CodeOf extracts the ErrorCode from an error chain. Unclassified errors
// report CodeInternal; nil reports the empty code.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
