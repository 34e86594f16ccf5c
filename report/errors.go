// Package report provides sentinel errors for report parsing.
// All errors can be checked using errors.Is() for programmatic handling.
package report

import (
	"errors"
	"fmt"
)

// ErrParse is returned when a report has an unexpected shape, e.g. invalid
// JSON when JSON was requested. It is never returned for a counter pattern
// that is simply absent from text output.
var ErrParse = errors.New("report parse failed")

// ErrUnknownKind is returned when a parse is requested for a kind with no
// registered patterns.
var ErrUnknownKind = errors.New("unknown report kind")

// WrapError wraps an error with additional context while preserving
// the ability to check against sentinel errors using errors.Is().
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// WrapErrorf wraps an error with formatted additional context while
// preserving the ability to check against sentinel errors using errors.Is().
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
