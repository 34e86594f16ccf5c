// Package scheduler sequences pipeline stages over their dependency DAG.
//
// Stages declare the stages they need; the scheduler runs every stage
// whose dependencies have all SUCCEEDED, in parallel where the DAG allows.
// A stage gated on a negative decision is SKIPPED, and skips propagate to
// every transitive dependent. A FAILED stage likewise ends its dependents
// as SKIPPED, but independent branches keep running - there is no global
// abort. The scheduler exposes the terminal state of every stage and the
// gate decision after the run, whatever the outcome.
package scheduler

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/conveyor-ci/conveyor/domain"
	"github.com/conveyor-ci/conveyor/errors"
)

// StageFunc is the body of one stage. It observes the shared run context
// and returns an error only for genuine stage failure; a negative gate
// decision is handled by the scheduler, not by returning an error.
type StageFunc func(ctx *RunContext) error

// Stage is one unit of pipeline work with declared dependencies.
type Stage struct {
	// Name uniquely identifies the stage within the pipeline.
	Name string

	// Needs lists the stages that must SUCCEED before this one runs.
	Needs []string

	// Gated marks the stage as subject to the run's gate decision: when
	// the decision is Proceed=false the stage is SKIPPED instead of run.
	Gated bool

	// Run is the stage body.
	Run StageFunc
}

// Scheduler drives one pipeline DAG. Build it once with New, then execute
// runs with Run; the Scheduler itself is immutable after construction.
type Scheduler struct {
	stages []Stage
	byName map[string]*Stage
	log    *zap.Logger
}

// New validates the stage DAG and constructs a Scheduler. Duplicate names,
// unknown dependencies, and dependency cycles are configuration errors.
func New(stages []Stage, log *zap.Logger) (*Scheduler, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if len(stages) == 0 {
		return nil, errors.New(errors.CodeInvalidConfig, "scheduler.New", "no stages defined")
	}

	byName := make(map[string]*Stage, len(stages))
	for i := range stages {
		s := &stages[i]
		if s.Name == "" {
			return nil, errors.New(errors.CodeInvalidConfig, "scheduler.New", "stage with empty name")
		}
		if s.Run == nil {
			return nil, errors.Newf(errors.CodeInvalidConfig, "scheduler.New",
				"stage %q has no body", s.Name)
		}
		if _, dup := byName[s.Name]; dup {
			return nil, errors.Newf(errors.CodeInvalidConfig, "scheduler.New",
				"duplicate stage %q", s.Name)
		}
		byName[s.Name] = s
	}

	for _, s := range stages {
		for _, dep := range s.Needs {
			if _, ok := byName[dep]; !ok {
				return nil, errors.Newf(errors.CodeInvalidConfig, "scheduler.New",
					"stage %q needs unknown stage %q", s.Name, dep)
			}
		}
	}

	if cycle := findCycle(stages, byName); cycle != "" {
		return nil, errors.Newf(errors.CodeInvalidConfig, "scheduler.New",
			"dependency cycle through %q", cycle)
	}

	return &Scheduler{stages: stages, byName: byName, log: log}, nil
}

// findCycle returns the name of a stage on a dependency cycle, or "".
func findCycle(stages []Stage, byName map[string]*Stage) string {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(stages))

	var visit func(name string) string
	visit = func(name string) string {
		switch state[name] {
		case visiting:
			return name
		case done:
			return ""
		}
		state[name] = visiting
		for _, dep := range byName[name].Needs {
			if hit := visit(dep); hit != "" {
				return hit
			}
		}
		state[name] = done
		return ""
	}

	for _, s := range stages {
		if hit := visit(s.Name); hit != "" {
			return hit
		}
	}
	return ""
}

// Result is the observable outcome of one run.
type Result struct {
	// Stages maps every stage name to its terminal status.
	Stages map[string]domain.StageStatus

	// Decision is the gate decision, nil when validation never produced
	// one.
	Decision *domain.GateDecision

	// Errs holds the per-stage cause for FAILED stages and the skip
	// reason for stages ended by a failed or skipped predecessor.
	// Gate skips carry no error: they are a normal outcome.
	Errs map[string]error
}

// Status returns the terminal status of a stage.
func (r *Result) Status(name string) domain.StageStatus {
	return r.Stages[name]
}

// Err returns the recorded error for a stage, nil if none.
func (r *Result) Err(name string) error {
	return r.Errs[name]
}

// Failed reports whether any stage failed.
func (r *Result) Failed() bool {
	for _, st := range r.Stages {
		if st == domain.StageFailed {
			return true
		}
	}
	return false
}

// String renders a compact per-stage status line for logs.
func (r *Result) String() string {
	out := ""
	for name, st := range r.Stages {
		if out != "" {
			out += " "
		}
		out += fmt.Sprintf("%s=%s", name, st)
	}
	return out
}
