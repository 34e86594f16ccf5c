// Package domain provides canonical type definitions for the conveyor
// pipeline orchestrator.
package domain

// StageStatus represents the lifecycle state of one pipeline stage.
// Stages start PENDING, move to RUNNING once every dependency has
// SUCCEEDED, and end in exactly one terminal state.
type StageStatus string

const (
	// StagePending indicates the stage is waiting on its dependencies.
	StagePending StageStatus = "PENDING"

	// StageRunning indicates the stage is currently executing.
	StageRunning StageStatus = "RUNNING"

	// StageSucceeded indicates the stage completed without error.
	StageSucceeded StageStatus = "SUCCEEDED"

	// StageFailed indicates the stage raised an unrecovered error.
	// Failure is terminal for the stage and its dependents, but does not
	// abort independent branches of the pipeline.
	StageFailed StageStatus = "FAILED"

	// StageSkipped indicates the stage never ran because its gating
	// decision was negative or a predecessor was skipped or failed.
	// Skipped is a normal terminal outcome, not an error.
	StageSkipped StageStatus = "SKIPPED"
)

// String returns the string representation of the StageStatus.
func (s StageStatus) String() string {
	return string(s)
}

// Terminal reports whether the status is one of the three end states.
func (s StageStatus) Terminal() bool {
	switch s {
	case StageSucceeded, StageFailed, StageSkipped:
		return true
	default:
		return false
	}
}

// ArtifactCategory names the logical grouping of files inside an artifact
// bundle. Categories are free-form strings; these constants cover the
// groupings the built-in board pipeline produces.
type ArtifactCategory = string

const (
	// CategoryFabrication holds manufacturing outputs (gerbers, drill files).
	CategoryFabrication ArtifactCategory = "fabrication"

	// CategoryModel holds 3-D model exports.
	CategoryModel ArtifactCategory = "3d-model"

	// CategoryNetlist holds netlist and BOM exports.
	CategoryNetlist ArtifactCategory = "netlist"

	// CategoryPreview holds rendered preview images.
	CategoryPreview ArtifactCategory = "preview-image"
)
