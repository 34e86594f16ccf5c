package scheduler

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/conveyor-ci/conveyor/artifact"
	"github.com/conveyor-ci/conveyor/domain"
)

// RunContext carries the shared state of one pipeline run into every
// stage: the triggering event, the artifact store, the logger, and the
// gate decision once validation computes it. Stage outputs beyond the
// artifact store travel through the typed value slots.
type RunContext struct {
	// Ctx is the run's cancellation context. Stage bodies pass it to
	// every blocking call.
	Ctx context.Context

	// Revision is the triggering change.
	Revision domain.Revision

	// Branch is the branch that triggered the run.
	Branch string

	// IsCI indicates a CI environment.
	IsCI bool

	// Store is the cross-stage artifact staging area.
	Store artifact.Store

	// Log is the run-scoped logger.
	Log *zap.Logger

	mu       sync.Mutex
	decision *domain.GateDecision
	release  *domain.ReleaseRecord
}

// Substitutions derives the tool substitution set from the trigger.
func (rc *RunContext) Substitutions() domain.Substitutions {
	return domain.Substitutions{
		Branch:   rc.Branch,
		ShortSHA: rc.Revision.Short,
		LongSHA:  rc.Revision.Long,
		IsCI:     rc.IsCI,
	}
}

// SetDecision records the gate decision. It is set exactly once, by the
// validation stage; later calls are ignored so the decision can never be
// recomputed mid-run.
func (rc *RunContext) SetDecision(d *domain.GateDecision) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.decision == nil {
		rc.decision = d
	}
}

// Decision returns the gate decision, nil before validation completes.
func (rc *RunContext) Decision() *domain.GateDecision {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.decision
}

// SetRelease records the published release.
func (rc *RunContext) SetRelease(rel *domain.ReleaseRecord) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.release = rel
}

// Release returns the published release, nil if publishing never ran.
func (rc *RunContext) Release() *domain.ReleaseRecord {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.release
}
