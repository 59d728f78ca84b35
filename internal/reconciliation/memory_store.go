package reconciliation

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store for demo/testing.
type MemoryStore struct {
	mu      sync.RWMutex
	reports map[string]*Report
}

// NewMemoryStore creates an in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reports: make(map[string]*Report)}
}

func (s *MemoryStore) Create(_ context.Context, r *Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	cp.Mismatches = append([]Mismatch(nil), r.Mismatches...)
	s.reports[r.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.reports[id]; ok {
		cp := *r
		cp.Mismatches = append([]Mismatch(nil), r.Mismatches...)
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListRecent(_ context.Context, limit int) ([]*Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Report
	for _, r := range s.reports {
		cp := *r
		cp.Mismatches = append([]Mismatch(nil), r.Mismatches...)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GeneratedAt.After(out[j].GeneratedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
