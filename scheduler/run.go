package scheduler

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conveyor-ci/conveyor/domain"
)

// completion is one stage's outcome delivered to the run loop.
type completion struct {
	name string
	err  error
}

// Run executes the pipeline for one triggering event. It returns when
// every stage has reached a terminal state; the returned Result always
// covers all stages, whatever the outcome. The error return is reserved
// for the run loop itself (context cancellation before completion) - stage
// failures are reported through the Result, not the error.
func (s *Scheduler) Run(rc *RunContext) (*Result, error) {
	statuses := make(map[string]domain.StageStatus, len(s.stages))
	errs := make(map[string]error)
	for _, st := range s.stages {
		statuses[st.Name] = domain.StagePending
	}

	log := s.log
	if rc.Log != nil {
		log = rc.Log
	}
	log = log.With(zap.String("revision", rc.Revision.Short), zap.String("branch", rc.Branch))

	// buffered so in-flight stages can always deliver, even when the run
	// loop has already returned on cancellation
	done := make(chan completion, len(s.stages))
	running := 0

	for !allTerminal(statuses) {
		progressed := s.dispatch(rc, statuses, errs, done, &running, log)

		if allTerminal(statuses) {
			break
		}
		if running == 0 && !progressed {
			// nothing running and nothing dispatchable: every remaining
			// PENDING stage waits on a terminal predecessor, which
			// dispatch resolves to SKIPPED; reaching here means the DAG
			// validation missed something
			return nil, fmt.Errorf("scheduler: run stalled with pending stages")
		}
		if running > 0 {
			select {
			case c := <-done:
				running--
				s.complete(c, statuses, errs, log)
			case <-rc.Ctx.Done():
				return nil, WrapError(rc.Ctx.Err(), "scheduler: run cancelled")
			}
		}
	}

	result := &Result{
		Stages:   statuses,
		Decision: rc.Decision(),
		Errs:     errs,
	}
	log.Info("pipeline run complete",
		zap.String("stages", result.String()),
		zap.Bool("failed", result.Failed()))
	return result, nil
}

// dispatch advances every PENDING stage whose fate is decidable: starts it,
// or skips it when gated shut or when a predecessor ended without success.
// Reports whether any state changed.
func (s *Scheduler) dispatch(
	rc *RunContext,
	statuses map[string]domain.StageStatus,
	errs map[string]error,
	done chan completion,
	running *int,
	log *zap.Logger,
) bool {
	progressed := false
	for _, st := range s.stages {
		if statuses[st.Name] != domain.StagePending {
			continue
		}

		ready := true
		var blocked string
		for _, dep := range st.Needs {
			switch statuses[dep] {
			case domain.StageSucceeded:
				// satisfied
			case domain.StageFailed, domain.StageSkipped:
				blocked = dep
				ready = false
			default:
				ready = false
			}
			if !ready {
				break
			}
		}

		if blocked != "" {
			statuses[st.Name] = domain.StageSkipped
			errs[st.Name] = WrapError(ErrStageNotRun,
				fmt.Sprintf("stage %q skipped: needs %q which ended %s",
					st.Name, blocked, statuses[blocked]))
			log.Info("stage skipped",
				zap.String("stage", st.Name),
				zap.String("blocked_on", blocked))
			progressed = true
			continue
		}
		if !ready {
			continue
		}

		if st.Gated {
			decision := rc.Decision()
			if decision == nil {
				statuses[st.Name] = domain.StageSkipped
				errs[st.Name] = WrapError(ErrStageNotRun,
					fmt.Sprintf("stage %q skipped: no gate decision", st.Name))
				progressed = true
				continue
			}
			if !decision.Proceed {
				// a closed gate is a normal outcome, no error recorded
				statuses[st.Name] = domain.StageSkipped
				log.Info("stage skipped by gate",
					zap.String("stage", st.Name),
					zap.Any("counters", decision.Counters))
				progressed = true
				continue
			}
		}

		statuses[st.Name] = domain.StageRunning
		*running++
		progressed = true
		log.Info("stage started", zap.String("stage", st.Name))

		go func(stage *Stage) {
			done <- completion{name: stage.Name, err: s.runStage(stage, rc)}
		}(s.byName[st.Name])
	}
	return progressed
}

// runStage executes one stage body, converting panics into failures so a
// misbehaving stage cannot take down sibling branches.
func (s *Scheduler) runStage(stage *Stage, rc *RunContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("stage %q panicked: %v", stage.Name, r)
		}
	}()
	return stage.Run(rc)
}

// complete records one stage outcome.
func (s *Scheduler) complete(
	c completion,
	statuses map[string]domain.StageStatus,
	errs map[string]error,
	log *zap.Logger,
) {
	if c.err != nil {
		statuses[c.name] = domain.StageFailed
		errs[c.name] = c.err
		log.Error("stage failed", zap.String("stage", c.name), zap.Error(c.err))
		return
	}
	statuses[c.name] = domain.StageSucceeded
	log.Info("stage succeeded", zap.String("stage", c.name))
}

// allTerminal reports whether every stage reached an end state.
func allTerminal(statuses map[string]domain.StageStatus) bool {
	for _, st := range statuses {
		if !st.Terminal() {
			return false
		}
	}
	return true
}

// Summary converts a Result into the run summary entity.
func Summary(rc *RunContext, res *Result, started time.Time) *domain.RunSummary {
	return &domain.RunSummary{
		RunID:       uuid.NewString(),
		Revision:    rc.Revision,
		Branch:      rc.Branch,
		Decision:    res.Decision,
		Stages:      res.Stages,
		StartedAt:   started,
		CompletedAt: time.Now(),
	}
}
