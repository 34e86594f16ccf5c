// Package runner provides sentinel errors for tool invocation failures.
// All errors can be checked using errors.Is() for programmatic handling.
package runner

import (
	"errors"
	"fmt"
)

// ErrToolFailure is the sentinel matched by every ToolFailure. Check with
// errors.Is(); unwrap to *ToolFailure with errors.As() for the captured
// output and exit code.
var ErrToolFailure = errors.New("tool invocation failed")

// ToolFailure reports a tool invocation that exited non-zero or exceeded
// its time bound. The captured output is carried along so the failure can
// be inspected after the run - it is never discarded.
type ToolFailure struct {
	// Invocation is the name of the failing invocation.
	Invocation string

	// ExitCode is the process exit status; -1 when the process did not
	// run to completion (e.g. killed on timeout).
	ExitCode int

	// TimedOut is true when the invocation exceeded its configured bound.
	// Timeouts are treated identically to a non-zero exit.
	TimedOut bool

	// Output holds everything captured before the failure.
	Output *Result

	cause error
}

// Error implements the error interface.
func (f *ToolFailure) Error() string {
	if f.TimedOut {
		return fmt.Sprintf("invocation %q timed out: %v", f.Invocation, f.cause)
	}
	return fmt.Sprintf("invocation %q exited %d: %v", f.Invocation, f.ExitCode, f.cause)
}

// Unwrap allows errors.Is(err, ErrToolFailure) to match.
func (f *ToolFailure) Unwrap() error {
	return ErrToolFailure
}
