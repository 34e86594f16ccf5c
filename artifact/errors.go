// Package artifact provides sentinel errors for artifact storage.
// All errors can be checked using errors.Is() for programmatic handling.
package artifact

import (
	"errors"
	"fmt"
)

// ErrArtifactNotFound is returned by Get when no blobs exist under the
// requested (revision, category) key. Distinguishing a genuine storage
// fault from an upstream stage that never ran is the scheduler's job; the
// store only reports the miss.
var ErrArtifactNotFound = errors.New("artifact not found")

// ErrAlreadySealed is returned by Put when the (revision, category) key has
// been sealed by its producing stage. Sealed keys are write-once.
var ErrAlreadySealed = errors.New("artifact category already sealed")

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
