// Package domain provides canonical type definitions for the conveyor
// pipeline orchestrator.
package domain

import (
	"strings"
	"time"
)

// shortRevisionLen is the length of the abbreviated revision form.
const shortRevisionLen = 7

// Revision identifies the change that triggered one pipeline run. It is
// immutable once derived from the triggering event and serves as the primary
// key correlating artifacts, reports, and tags across stages.
type Revision struct {
	// Short is the fixed-length abbreviated identifier (first 7 characters).
	Short string `json:"short"`

	// Long is the full identifier of the triggering change.
	Long string `json:"long"`
}

// ParseRevision derives a Revision from the full identifier carried by the
// triggering event. The short form is the standard 7-character prefix; a
// full id shorter than that is used as-is.
func ParseRevision(long string) Revision {
	short := long
	if len(long) > shortRevisionLen {
		short = long[:shortRevisionLen]
	}
	return Revision{Short: short, Long: long}
}

// IsZero reports whether the revision is unset.
func (r Revision) IsZero() bool {
	return r.Long == ""
}

// String returns the short form, which is how revisions appear in logs and
// artifact keys.
func (r Revision) String() string {
	return r.Short
}

// Substitutions carries the named values available to tool invocation
// templates. Every placeholder in a template must resolve to one of these.
type Substitutions struct {
	// Branch is the name of the branch that triggered the run.
	Branch string `json:"branch"`

	// ShortSHA is the abbreviated revision identifier.
	ShortSHA string `json:"short_sha"`

	// LongSHA is the full revision identifier.
	LongSHA string `json:"long_sha"`

	// IsCI indicates whether the run executes inside a CI environment.
	IsCI bool `json:"is_ci"`
}

// ToolInvocation is a command template with named substitution parameters
// and a list of declared output paths. Invocations are created by
// configuration and never mutated at runtime.
type ToolInvocation struct {
	// Name is the human-readable identifier of this invocation, used in
	// logs and error messages (e.g. "drc", "export-gerbers").
	Name string `json:"name"`

	// Program is the external executable to run.
	Program string `json:"program"`

	// Args is the ordered argument list. Arguments may carry placeholders
	// in the form {BRANCH}, {SHORT_SHA}, {LONG_SHA}, {IS_CI}.
	Args []string `json:"args"`

	// Outputs declares the file paths the tool is expected to create.
	// Placeholders are expanded the same way as in Args. The runner does
	// not interpret these files; stages collect them after the run.
	Outputs []string `json:"outputs,omitempty"`
}

// Finding is one individual issue reported by a validation tool.
type Finding struct {
	// Severity classifies the finding (e.g. "error", "warning").
	Severity string `json:"severity"`

	// Description is the tool's human-readable explanation.
	Description string `json:"description"`

	// Items lists the design elements the finding refers to.
	Items []string `json:"items,omitempty"`
}

// Report is the structured result of one validation tool run: a set of
// named integer counters plus the individual findings behind them.
// Reports are derived, read-only values - one per validation invocation.
type Report struct {
	// Kind identifies which validation produced the report
	// (e.g. "drc", "unconnected", "parity").
	Kind string `json:"kind"`

	// Counters maps counter names to extracted counts. A counter the
	// tool did not mention is simply absent; consumers treat absence
	// as zero.
	Counters map[string]int `json:"counters"`

	// Findings holds the individual issue records, when available.
	Findings []Finding `json:"findings,omitempty"`
}

// Counter returns the named counter, treating absence as zero.
func (r *Report) Counter(name string) int {
	if r == nil || r.Counters == nil {
		return 0
	}
	return r.Counters[name]
}

// GateDecision is the single continue/stop decision for one pipeline run.
// It is computed exactly once, after all validation reports are in, and is
// carried unchanged to every downstream stage.
type GateDecision struct {
	// Proceed is true iff every tracked counter across all reports is zero.
	Proceed bool `json:"proceed"`

	// Revision is the run the decision belongs to.
	Revision Revision `json:"revision"`

	// Counters holds the merged counter values that produced the decision,
	// kept for operator visibility when the gate stops a run.
	Counters map[string]int `json:"counters"`
}

// Tag is a strictly increasing release identifier: a numeric sequence
// component plus the rendered label.
type Tag struct {
	// Seq is the numeric component. Across all tags ever allocated it is
	// the maximum of all prior allocations plus one.
	Seq int `json:"seq"`

	// Label is the rendered form: prefix plus zero-padded sequence
	// (e.g. "ci-build-0042"). Labels are unique.
	Label string `json:"label"`
}

// String returns the rendered label.
func (t Tag) String() string {
	return t.Label
}

// Asset is one file blob attached to a release.
type Asset struct {
	// Name is the file name the asset is published under.
	Name string `json:"name"`

	// Category is the artifact category the asset came from.
	Category string `json:"category"`

	// Data is the raw content.
	Data []byte `json:"-"`
}

// ReleaseRecord describes one published release. It is created once by the
// publish stage and immutable thereafter.
type ReleaseRecord struct {
	// Tag is the allocated release identifier.
	Tag Tag `json:"tag"`

	// Revision is the pipeline run the release was built from.
	Revision Revision `json:"revision"`

	// Title is the human-readable release title.
	Title string `json:"title"`

	// Body is the rendered description. It may embed externally hosted
	// image references; a failed image upload results in the image line
	// being omitted, never in a broken reference.
	Body string `json:"body"`

	// Categories lists the artifact categories bundled into the release.
	Categories []string `json:"categories"`

	// Draft marks the release as a draft.
	Draft bool `json:"draft"`

	// Prerelease marks the release as a prerelease.
	Prerelease bool `json:"prerelease"`

	// PublishedID is the identifier returned by the publishing backend.
	// Empty until the publish call succeeds.
	PublishedID string `json:"published_id,omitempty"`
}

// RunSummary is the observable outcome of one pipeline run: the final state
// of every stage plus the gate decision, exposed after the run completes.
type RunSummary struct {
	// RunID uniquely identifies this pipeline run.
	RunID string `json:"run_id"`

	// Revision is the triggering change.
	Revision Revision `json:"revision"`

	// Branch is the branch that triggered the run.
	Branch string `json:"branch"`

	// Decision is the gate decision, nil if validation never completed.
	Decision *GateDecision `json:"decision,omitempty"`

	// Stages maps stage names to their terminal status.
	Stages map[string]StageStatus `json:"stages"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// CompletedAt is when the last stage reached a terminal state.
	CompletedAt time.Time `json:"completed_at"`
}

// Failed reports whether any stage of the run ended in StageFailed.
func (s *RunSummary) Failed() bool {
	for _, st := range s.Stages {
		if st == StageFailed {
			return true
		}
	}
	return false
}

// StageNames returns the stage names in deterministic (sorted) order.
func (s *RunSummary) StageNames() []string {
	names := make([]string, 0, len(s.Stages))
	for name := range s.Stages {
		names = append(names, name)
	}
	// insertion sort; summaries hold a handful of stages
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && strings.Compare(names[j-1], names[j]) > 0; j-- {
			names[j-1], names[j] = names[j], names[j-1]
		}
	}
	return names
}
