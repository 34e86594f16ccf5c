package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/conveyor-ci/conveyor/domain"
	conveyorerrors "github.com/conveyor-ci/conveyor/errors"
	"github.com/conveyor-ci/conveyor/scheduler"
)

func newRunContext() *scheduler.RunContext {
	return &scheduler.RunContext{
		Ctx:      context.Background(),
		Revision: domain.ParseRevision("abc1234def5678900112233445566778899aabb"),
		Branch:   "main",
		IsCI:     true,
		Log:      zap.NewNop(),
	}
}

func noop(*scheduler.RunContext) error { return nil }

func proceed(rc *scheduler.RunContext) error {
	rc.SetDecision(&domain.GateDecision{Proceed: true, Revision: rc.Revision})
	return nil
}

func stop(rc *scheduler.RunContext) error {
	rc.SetDecision(&domain.GateDecision{
		Proceed:  false,
		Revision: rc.Revision,
		Counters: map[string]int{"violations": 3},
	})
	return nil
}

func TestLinearChainSucceeds(t *testing.T) {
	s, err := scheduler.New([]scheduler.Stage{
		{Name: "validate", Run: proceed},
		{Name: "export", Needs: []string{"validate"}, Gated: true, Run: noop},
		{Name: "publish", Needs: []string{"export"}, Run: noop},
	}, nil)
	require.NoError(t, err)

	res, err := s.Run(newRunContext())
	require.NoError(t, err)

	assert.Equal(t, domain.StageSucceeded, res.Status("validate"))
	assert.Equal(t, domain.StageSucceeded, res.Status("export"))
	assert.Equal(t, domain.StageSucceeded, res.Status("publish"))
	assert.False(t, res.Failed())
	require.NotNil(t, res.Decision)
	assert.True(t, res.Decision.Proceed)
}

func TestClosedGateSkipsTransitively(t *testing.T) {
	s, err := scheduler.New([]scheduler.Stage{
		{Name: "validate", Run: stop},
		{Name: "export", Needs: []string{"validate"}, Gated: true, Run: noop},
		{Name: "publish", Needs: []string{"export"}, Run: noop},
		{Name: "post-process", Needs: []string{"export"}, Run: noop},
	}, nil)
	require.NoError(t, err)

	res, err := s.Run(newRunContext())
	require.NoError(t, err)

	assert.Equal(t, domain.StageSucceeded, res.Status("validate"))
	assert.Equal(t, domain.StageSkipped, res.Status("export"))
	assert.Equal(t, domain.StageSkipped, res.Status("publish"))
	assert.Equal(t, domain.StageSkipped, res.Status("post-process"))

	// the gate skip itself is a normal outcome, not an error
	assert.NoError(t, res.Err("export"))
	// downstream skips record the not-run distinction
	assert.True(t, scheduler.IsStageNotRun(res.Err("publish")))

	assert.False(t, res.Failed(), "a closed gate is not a failure")
	require.NotNil(t, res.Decision)
	assert.Equal(t, 3, res.Decision.Counters["violations"])
}

func TestFailedStageSkipsDependentsOnly(t *testing.T) {
	boom := errors.New("tool exploded")
	var siblingRan bool

	s, err := scheduler.New([]scheduler.Stage{
		{Name: "validate", Run: proceed},
		{Name: "export", Needs: []string{"validate"}, Gated: true,
			Run: func(*scheduler.RunContext) error { return boom }},
		{Name: "publish", Needs: []string{"export"}, Run: noop},
		{Name: "lint", Needs: []string{"validate"},
			Run: func(*scheduler.RunContext) error { siblingRan = true; return nil }},
	}, nil)
	require.NoError(t, err)

	res, err := s.Run(newRunContext())
	require.NoError(t, err)

	assert.Equal(t, domain.StageFailed, res.Status("export"))
	assert.ErrorIs(t, res.Err("export"), boom)
	assert.Equal(t, domain.StageSkipped, res.Status("publish"))
	assert.True(t, scheduler.IsStageNotRun(res.Err("publish")))

	// the independent branch still reaches a terminal state
	assert.Equal(t, domain.StageSucceeded, res.Status("lint"))
	assert.True(t, siblingRan)
	assert.True(t, res.Failed())
}

func TestSkippedPredecessorNeverRuns(t *testing.T) {
	var ran bool
	s, err := scheduler.New([]scheduler.Stage{
		{Name: "validate", Run: stop},
		{Name: "export", Needs: []string{"validate"}, Gated: true, Run: noop},
		{Name: "publish", Needs: []string{"export"},
			Run: func(*scheduler.RunContext) error { ran = true; return nil }},
	}, nil)
	require.NoError(t, err)

	res, err := s.Run(newRunContext())
	require.NoError(t, err)

	assert.False(t, ran, "a stage with a skipped predecessor must never run")
	assert.Equal(t, domain.StageSkipped, res.Status("publish"))
}

func TestIndependentStagesRunConcurrently(t *testing.T) {
	var mu sync.Mutex
	inFlight, peak := 0, 0

	track := func(*scheduler.RunContext) error {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()

		time.Sleep(30 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()
		return nil
	}

	s, err := scheduler.New([]scheduler.Stage{
		{Name: "validate", Run: proceed},
		{Name: "export", Needs: []string{"validate"}, Gated: true, Run: noop},
		{Name: "publish", Needs: []string{"export"}, Run: track},
		{Name: "post-process", Needs: []string{"export"}, Run: track},
	}, nil)
	require.NoError(t, err)

	_, err = s.Run(newRunContext())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, peak, "publish and post-process share only the export dependency")
}

func TestPanicBecomesStageFailure(t *testing.T) {
	s, err := scheduler.New([]scheduler.Stage{
		{Name: "validate", Run: func(*scheduler.RunContext) error { panic("boom") }},
		{Name: "export", Needs: []string{"validate"}, Run: noop},
	}, nil)
	require.NoError(t, err)

	res, err := s.Run(newRunContext())
	require.NoError(t, err)
	assert.Equal(t, domain.StageFailed, res.Status("validate"))
	assert.Equal(t, domain.StageSkipped, res.Status("export"))
}

func TestNewRejectsBadDAGs(t *testing.T) {
	tests := []struct {
		name   string
		stages []scheduler.Stage
	}{
		{
			name:   "empty pipeline",
			stages: nil,
		},
		{
			name: "duplicate stage name",
			stages: []scheduler.Stage{
				{Name: "a", Run: noop},
				{Name: "a", Run: noop},
			},
		},
		{
			name: "unknown dependency",
			stages: []scheduler.Stage{
				{Name: "a", Needs: []string{"ghost"}, Run: noop},
			},
		},
		{
			name: "cycle",
			stages: []scheduler.Stage{
				{Name: "a", Needs: []string{"b"}, Run: noop},
				{Name: "b", Needs: []string{"a"}, Run: noop},
			},
		},
		{
			name: "missing body",
			stages: []scheduler.Stage{
				{Name: "a"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := scheduler.New(tt.stages, nil)
			require.Error(t, err)
			assert.True(t, conveyorerrors.HasCode(err, conveyorerrors.CodeInvalidConfig))
		})
	}
}

func TestDecisionIsSetOnce(t *testing.T) {
	rc := newRunContext()
	first := &domain.GateDecision{Proceed: true}
	rc.SetDecision(first)
	rc.SetDecision(&domain.GateDecision{Proceed: false})

	assert.Same(t, first, rc.Decision(), "the gate decision is immutable once computed")
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	s, err := scheduler.New([]scheduler.Stage{
		{Name: "slow", Run: func(*scheduler.RunContext) error {
			time.Sleep(5 * time.Second)
			return nil
		}},
	}, nil)
	require.NoError(t, err)

	rc := newRunContext()
	rc.Ctx = ctx
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err = s.Run(rc)
	assert.Error(t, err)
}
