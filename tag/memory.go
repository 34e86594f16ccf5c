package tag

import (
	"context"
	"sync"
)

// MemoryStore is an in-process history source and reserver. It backs tests
// and single-writer pipelines that have no git repository to tag.
type MemoryStore struct {
	mu     sync.Mutex
	labels map[string]struct{}
}

// NewMemoryStore creates a MemoryStore seeded with the given labels.
func NewMemoryStore(seed ...string) *MemoryStore {
	labels := make(map[string]struct{}, len(seed))
	for _, l := range seed {
		labels[l] = struct{}{}
	}
	return &MemoryStore{labels: labels}
}

// History implements HistorySource.
func (m *MemoryStore) History(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, WrapError(err, "memory history")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.labels))
	for l := range m.labels {
		out = append(out, l)
	}
	return out, nil
}

// Reserve implements Reserver with a check-and-set under one lock.
func (m *MemoryStore) Reserve(ctx context.Context, label string) error {
	if err := ctx.Err(); err != nil {
		return WrapError(err, "memory reserve")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.labels[label]; exists {
		return WrapErrorf(ErrTagConflict, "reserve %q", label)
	}
	m.labels[label] = struct{}{}
	return nil
}

// Compile-time interface checks.
var (
	_ HistorySource = (*MemoryStore)(nil)
	_ Reserver      = (*MemoryStore)(nil)
)
