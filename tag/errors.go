// Package tag provides sentinel errors for tag allocation.
// All errors can be checked using errors.Is() for programmatic handling.
package tag

import (
	"errors"
	"fmt"
)

// ErrTagConflict is returned when a reservation loses a race: a tag with
// the computed label already exists. A second allocator must never
// silently overwrite; it retries with refreshed history instead.
var ErrTagConflict = errors.New("tag label already exists")

// IsConflict reports whether the error chain contains ErrTagConflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrTagConflict)
}

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
