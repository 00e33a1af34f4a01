package changelog

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store used by tests and local runs.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []*Entry
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Append(_ context.Context, e *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *e
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *MemoryStore) ListRecent(_ context.Context, limit int) ([]*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Entry
	for i := len(m.entries) - 1; i >= 0; i-- {
		cp := *m.entries[i]
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) ListByDrug(_ context.Context, normalizedName string, limit int) ([]*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Entry
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].NormalizedName != normalizedName {
			continue
		}
		cp := *m.entries[i]
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) ListByRun(_ context.Context, runID string) ([]*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Entry
	for _, e := range m.entries {
		if e.PipelineRunID == runID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}
