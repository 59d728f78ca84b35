package pspwebhooks

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for demo/testing.
type MemoryStore struct {
	mu   sync.RWMutex
	byID map[string]*Received
	ids  []string // insertion order
}

// NewMemoryStore creates an in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]*Received)}
}

func (s *MemoryStore) Create(_ context.Context, r *Received) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.byID[r.ID] = &cp
	s.ids = append(s.ids, r.ID)
	return nil
}

func (s *MemoryStore) MarkProcessed(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	r.Processed = true
	r.ProcessedAt = &at
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Received, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.byID[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListByProvider(_ context.Context, provider string, limit int) ([]*Received, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Received
	for i := len(s.ids) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		r := s.byID[s.ids[i]]
		if r.Provider == provider {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}
