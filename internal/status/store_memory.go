package status

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"regscope/pkg/platform/sentinel"
)

// MemoryStore is an in-memory Store used by tests and local runs.
type MemoryStore struct {
	mu     sync.RWMutex
	drugs  map[string]*GlobalStatus
	events []*Event
	nextID int64
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		drugs:  make(map[string]*GlobalStatus),
		nextID: 1,
	}
}

func (m *MemoryStore) Get(_ context.Context, normalizedName string) (*GlobalStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.drugs[normalizedName]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.Clone(), nil
}

func (m *MemoryStore) Upsert(_ context.Context, s *GlobalStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.drugs[s.NormalizedName] = s.Clone()
	return nil
}

func (m *MemoryStore) List(_ context.Context) ([]*GlobalStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*GlobalStatus, 0, len(m.drugs))
	for _, s := range m.drugs {
		out = append(out, s.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].NormalizedName < out[j].NormalizedName
	})
	return out, nil
}

func (m *MemoryStore) ListHot(_ context.Context, minScore, limit int) ([]*GlobalStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*GlobalStatus
	for _, s := range m.drugs {
		if s.GlobalScore >= minScore {
			out = append(out, s.Clone())
		}
	}
	sortByScore(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) ListByLevel(_ context.Context, level HotIssueLevel) ([]*GlobalStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*GlobalStatus
	for _, s := range m.drugs {
		if s.HotIssueLevel == level {
			out = append(out, s.Clone())
		}
	}
	sortByScore(out)
	return out, nil
}

func (m *MemoryStore) Search(_ context.Context, query string, limit int) ([]*GlobalStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, nil
	}

	var out []*GlobalStatus
	for _, s := range m.drugs {
		if matchesQuery(s, q) {
			out = append(out, s.Clone())
		}
	}
	sortByScore(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func matchesQuery(s *GlobalStatus, q string) bool {
	if strings.Contains(strings.ToLower(s.INN), q) ||
		strings.Contains(strings.ToLower(s.NormalizedName), q) {
		return true
	}
	for _, a := range []*Approval{s.FDA, s.EMA, s.MFDS} {
		if a != nil && strings.Contains(strings.ToLower(a.BrandName), q) {
			return true
		}
	}
	return false
}

func (m *MemoryStore) UpsertEvent(_ context.Context, e *Event) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.events {
		if existing.NormalizedName == e.NormalizedName &&
			existing.Agency == e.Agency &&
			existing.EventType == e.EventType &&
			sameDate(existing.EventDate, e.EventDate) {
			return false, nil
		}
	}

	cp := *e
	cp.ID = m.nextID
	m.nextID++
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	m.events = append(m.events, &cp)
	return true, nil
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func (m *MemoryStore) ListEvents(_ context.Context, normalizedName string, limit int) ([]*Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Event
	for _, e := range m.events {
		if e.NormalizedName == normalizedName {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Stats(_ context.Context) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &Stats{
		TotalDrugs: len(m.drugs),
		ByLevel:    map[string]int{},
	}
	for _, s := range m.drugs {
		stats.ByLevel[string(s.HotIssueLevel)]++
		if s.ApprovalCount() == len(Agencies) {
			stats.ApprovedByAll++
		}
		if stats.LastUpdated == nil || s.LastUpdated.After(*stats.LastUpdated) {
			t := s.LastUpdated
			stats.LastUpdated = &t
		}
	}
	return stats, nil
}

func sortByScore(out []*GlobalStatus) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].GlobalScore != out[j].GlobalScore {
			return out[i].GlobalScore > out[j].GlobalScore
		}
		return out[i].NormalizedName < out[j].NormalizedName
	})
}
