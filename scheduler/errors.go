// Package scheduler provides sentinel errors for stage sequencing.
// All errors can be checked using errors.Is() for programmatic handling.
package scheduler

import (
	"errors"
	"fmt"
)

// ErrStageNotRun marks a stage that was skipped because a predecessor
// failed or was itself skipped. It distinguishes "the upstream stage never
// ran" from a genuine storage or execution fault, and it propagates as
// SKIPPED, never as a run failure.
var ErrStageNotRun = errors.New("predecessor stage did not run")

// IsStageNotRun reports whether the error chain contains ErrStageNotRun.
func IsStageNotRun(err error) bool {
	return errors.Is(err, ErrStageNotRun)
}

// WrapError wraps an error with additional context while preserving
// the ability to check against sentinel errors using errors.Is().
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}
