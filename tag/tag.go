// Package tag allocates monotonically increasing, collision-free release
// identifiers from the history of previously allocated tags.
//
// Allocation splits into arithmetic and reservation. The arithmetic is
// pure: parse every historical label matching the scheme, take the maximum
// numeric suffix, add one. The reservation is the actual synchronization
// point: creating the uniquely named reference either succeeds or reports
// ErrTagConflict, and a conflicting allocator retries against refreshed
// history instead of overwriting. The arithmetic alone is never enough -
// two runs computing the same next label close together is exactly the
// race the reservation step exists to detect.
package tag

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/conveyor-ci/conveyor/domain"
)

// DefaultScheme matches the ci-build-0001 labeling convention.
var DefaultScheme = Scheme{Prefix: "ci-build-", Width: 4}

// Scheme describes the label layout: a fixed prefix followed by a
// zero-padded integer of the given width.
type Scheme struct {
	// Prefix is the fixed label prefix (e.g. "ci-build-").
	Prefix string

	// Width is the zero-padding width of the numeric suffix.
	Width int
}

// Render formats the label for a sequence number, preserving the scheme's
// zero-padding. Numbers wider than the padding render unpadded rather than
// truncated.
func (s Scheme) Render(seq int) string {
	return fmt.Sprintf("%s%0*d", s.Prefix, s.Width, seq)
}

// Parse extracts the numeric suffix from a label. The second return is
// false when the label does not follow the scheme; such labels are ignored
// during allocation, not treated as errors.
func (s Scheme) Parse(label string) (int, bool) {
	if !strings.HasPrefix(label, s.Prefix) {
		return 0, false
	}
	suffix := strings.TrimPrefix(label, s.Prefix)
	if suffix == "" {
		return 0, false
	}
	n, err := strconv.Atoi(suffix)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Next computes the next tag from the history of existing labels: the
// maximum matching suffix plus one, with an empty history treated as zero.
// This is pure arithmetic; the caller still has to reserve the label.
func (s Scheme) Next(history []string) domain.Tag {
	maxSeq := 0
	for _, label := range history {
		if n, ok := s.Parse(label); ok && n > maxSeq {
			maxSeq = n
		}
	}
	seq := maxSeq + 1
	return domain.Tag{Seq: seq, Label: s.Render(seq)}
}

// HistorySource supplies the current set of allocated tag labels.
type HistorySource interface {
	// History returns all existing tag labels. The allocator filters by
	// scheme; the source may return unrelated labels.
	History(ctx context.Context) ([]string, error)
}

// Reserver claims a label. Reservation is atomic: either the label did not
// exist and now belongs to the caller, or ErrTagConflict is returned.
type Reserver interface {
	// Reserve claims the label, failing with ErrTagConflict if a tag with
	// that label already exists.
	Reserve(ctx context.Context, label string) error
}

// Allocate reads history, computes the next tag, and reserves it. A lost
// reservation race is retried with refreshed history up to maxRetries
// additional attempts before ErrTagConflict surfaces to the caller.
func Allocate(
	ctx context.Context,
	scheme Scheme,
	src HistorySource,
	rsv Reserver,
	maxRetries int,
) (domain.Tag, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		history, err := src.History(ctx)
		if err != nil {
			return domain.Tag{}, WrapError(err, "reading tag history")
		}

		next := scheme.Next(history)
		err = rsv.Reserve(ctx, next.Label)
		if err == nil {
			return next, nil
		}
		if !IsConflict(err) {
			return domain.Tag{}, WrapErrorf(err, "reserving %q", next.Label)
		}
		lastErr = err
	}
	return domain.Tag{}, WrapErrorf(lastErr, "allocation lost %d races", maxRetries+1)
}
