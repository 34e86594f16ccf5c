// Package errors provides the structured error taxonomy for the conveyor
// orchestrator. It extends Go's standard error handling with error codes
// that classify failures across the pipeline: configuration mistakes, tool
// failures, parse failures, storage faults, and allocation conflicts.
package errors

// ErrorCode represents a specific error condition in the orchestrator.
// Error codes are string-based for debuggability and natural JSON
// serialization.
type ErrorCode string

const (
	// Configuration errors.

	// CodeInvalidConfig indicates a malformed template, substitution set,
	// or pipeline definition. Fatal, never retried.
	CodeInvalidConfig ErrorCode = "INVALID_CONFIGURATION"

	// Execution errors.

	// CodeToolFailed indicates an external command exited non-zero or
	// exceeded its time bound. Fatal to the owning stage.
	CodeToolFailed ErrorCode = "TOOL_FAILED"

	// CodeParseFailed indicates a tool report had an unexpected shape.
	// Fatal to the owning stage.
	CodeParseFailed ErrorCode = "PARSE_FAILED"

	// CodeTimeout indicates an operation exceeded its time limit.
	CodeTimeout ErrorCode = "TIMEOUT"

	// Storage errors.

	// CodeNotFound indicates a requested artifact does not exist even
	// though its producing stage ran.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeStageNotRun indicates an artifact is missing because its
	// producing stage never ran. Propagates as a skip, not a fault.
	CodeStageNotRun ErrorCode = "STAGE_NOT_RUN"

	// CodeAlreadySealed indicates a write to an artifact key that has
	// been sealed by its producing stage.
	CodeAlreadySealed ErrorCode = "ALREADY_SEALED"

	// Allocation errors.

	// CodeTagConflict indicates a tag reservation lost a race: the
	// computed label already exists. Retried with refreshed history,
	// bounded, before surfacing fatally.
	CodeTagConflict ErrorCode = "TAG_CONFLICT"

	// Publishing errors.

	// CodePublishFailed indicates the release publishing backend
	// rejected or failed the publish call.
	CodePublishFailed ErrorCode = "PUBLISH_FAILED"

	// Generic errors.

	// CodeInternal indicates an unclassified internal error.
	CodeInternal ErrorCode = "INTERNAL_ERROR"
)

// String returns the string representation of the ErrorCode.
func (c ErrorCode) String() string {
	return string(c)
}

// Retryable reports whether an error with this code may be retried by the
// caller that owns the relevant policy. Only tag conflicts qualify: the
// publish stage retries allocation with refreshed history.
func (c ErrorCode) Retryable() bool {
	return c == CodeTagConflict
}
