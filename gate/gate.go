// Package gate converts a complete set of validation reports into the
// single continue/stop decision for a pipeline run. The policy is a strict
// AND over independent fail conditions: the run proceeds iff every tracked
// counter across every report is exactly zero. There are no partial-credit
// thresholds.
//
// A negative decision is not an error. It is a normal, reported terminal
// outcome; the violating counters ride along for operator visibility.
package gate

import (
	"errors"
	"fmt"

	"github.com/conveyor-ci/conveyor/domain"
)

// ErrIncompleteReports is returned when Evaluate is called with no reports.
// A decision over a partial report set must never be produced; callers are
// required to collect every validation report first.
var ErrIncompleteReports = errors.New("incomplete report set")

// Evaluate computes the gate decision for one run from the full set of
// validation reports. Counters with the same name are summed across
// reports. The decision is computed once and the returned value is treated
// as immutable by every downstream stage - it is never recomputed.
func Evaluate(rev domain.Revision, reports []*domain.Report) (*domain.GateDecision, error) {
	if len(reports) == 0 {
		return nil, fmt.Errorf("evaluating gate for %s: %w", rev, ErrIncompleteReports)
	}

	merged := make(map[string]int)
	for _, rep := range reports {
		if rep == nil {
			return nil, fmt.Errorf("evaluating gate for %s: nil report: %w", rev, ErrIncompleteReports)
		}
		for name, count := range rep.Counters {
			merged[name] += count
		}
	}

	proceed := true
	for _, count := range merged {
		if count != 0 {
			proceed = false
			break
		}
	}

	return &domain.GateDecision{
		Proceed:  proceed,
		Revision: rev,
		Counters: merged,
	}, nil
}
