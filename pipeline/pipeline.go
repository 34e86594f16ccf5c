// Package pipeline assembles the board CI pipeline on top of the
// orchestrator core: a validation stage gated on zero findings, a parallel
// export stage feeding the artifact store, and publish / post-process
// stages fanning out from the exported bundle.
//
// The stage DAG:
//
//	validate ──► export ──┬──► publish
//	                      └──► post-process
//
// Export is gated on the validation decision. Publish and post-process
// depend only on export and run concurrently with each other.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/conveyor-ci/conveyor/artifact"
	"github.com/conveyor-ci/conveyor/domain"
	"github.com/conveyor-ci/conveyor/publish"
	"github.com/conveyor-ci/conveyor/runner"
	"github.com/conveyor-ci/conveyor/scheduler"
	"github.com/conveyor-ci/conveyor/tag"
)

// Stage names.
const (
	StageValidate    = "validate"
	StageExport      = "export"
	StagePublish     = "publish"
	StagePostProcess = "post-process"
)

// ValidationCheck pairs one checker invocation with the report kind that
// parses its output.
type ValidationCheck struct {
	Invocation domain.ToolInvocation

	// Kind selects the counter patterns for the check's output.
	Kind string

	// JSONReport marks the check as emitting a structured JSON report on
	// stdout instead of text.
	JSONReport bool
}

// ExportJob pairs one export invocation with the artifact category its
// outputs are stored under. Jobs are mutually independent and run
// concurrently.
type ExportJob struct {
	Invocation domain.ToolInvocation

	// Category is the artifact category for the job's declared outputs.
	Category string
}

// Options configures the assembled pipeline.
type Options struct {
	// Checks are the validation invocations. All of them run and all of
	// their reports feed one gate decision.
	Checks []ValidationCheck

	// Exports are the independent export jobs.
	Exports []ExportJob

	// PostProcess is the invocation fed with the fabrication artifacts.
	// Nil disables the stage.
	PostProcess *domain.ToolInvocation

	// Scheme is the tag labeling scheme.
	Scheme tag.Scheme

	// TagRetries bounds re-allocation after a lost reservation race.
	TagRetries int

	// ValidateOnly restricts the run to the validation stage. The gate
	// decision is still computed and reported.
	ValidateOnly bool

	// Draft and Prerelease are forwarded to the release record.
	Draft      bool
	Prerelease bool

	// Timeout bounds each tool invocation. Zero means unbounded.
	Timeout time.Duration
}

// Pipeline wires the orchestrator core components into the board CI DAG.
type Pipeline struct {
	runner    runner.Runner
	store     artifact.Store
	history   tag.HistorySource
	reserver  tag.Reserver
	publisher publish.Publisher
	images    publish.ImageHost
	log       *zap.Logger
	opts      Options
}

// New assembles a pipeline. The image host may be nil when no preview
// images are published.
func New(
	r runner.Runner,
	store artifact.Store,
	history tag.HistorySource,
	reserver tag.Reserver,
	publisher publish.Publisher,
	images publish.ImageHost,
	log *zap.Logger,
	opts Options,
) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Scheme.Prefix == "" {
		opts.Scheme = tag.DefaultScheme
	}
	return &Pipeline{
		runner:    r,
		store:     store,
		history:   history,
		reserver:  reserver,
		publisher: publisher,
		images:    images,
		log:       log,
		opts:      opts,
	}
}

// Trigger is the external event that starts a run.
type Trigger struct {
	// Revision is the full identifier of the triggering change.
	Revision string

	// Branch is the branch name.
	Branch string

	// IsCI indicates a CI environment.
	IsCI bool
}

// Run executes the pipeline for one trigger and returns the run summary
// together with the scheduler result. A closed gate or a failed stage is
// reported through the summary; the error return covers orchestration
// faults only.
func (p *Pipeline) Run(ctx context.Context, trig Trigger) (*domain.RunSummary, *scheduler.Result, error) {
	sched, err := scheduler.New(p.Stages(), p.log)
	if err != nil {
		return nil, nil, err
	}

	rc := &scheduler.RunContext{
		Ctx:      ctx,
		Revision: domain.ParseRevision(trig.Revision),
		Branch:   trig.Branch,
		IsCI:     trig.IsCI,
		Store:    p.store,
		Log:      p.log,
	}

	started := time.Now()
	res, err := sched.Run(rc)
	if err != nil {
		return nil, nil, err
	}
	return scheduler.Summary(rc, res, started), res, nil
}

// Stages returns the pipeline's stage DAG.
func (p *Pipeline) Stages() []scheduler.Stage {
	if p.opts.ValidateOnly {
		return []scheduler.Stage{{Name: StageValidate, Run: p.validate}}
	}
	stages := []scheduler.Stage{
		{Name: StageValidate, Run: p.validate},
		{Name: StageExport, Needs: []string{StageValidate}, Gated: true, Run: p.export},
		{Name: StagePublish, Needs: []string{StageExport}, Run: p.publish},
	}
	if p.opts.PostProcess != nil {
		stages = append(stages, scheduler.Stage{
			Name:  StagePostProcess,
			Needs: []string{StageExport},
			Run:   p.postProcess,
		})
	}
	return stages
}

// runnerOptions builds the per-invocation options.
func (p *Pipeline) runnerOptions() []runner.Option {
	opts := []runner.Option{runner.SilentMode()}
	if p.opts.Timeout > 0 {
		opts = append(opts, runner.WithTimeout(p.opts.Timeout))
	}
	return opts
}
