package webhooks

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for demo/testing.
type MemoryStore struct {
	mu   sync.RWMutex
	byID map[string]*Delivery
}

// NewMemoryStore creates an in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]*Delivery)}
}

func (s *MemoryStore) Create(_ context.Context, d *Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *d
	s.byID[d.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if d, ok := s.byID[id]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) Update(_ context.Context, d *Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[d.ID]; !ok {
		return ErrNotFound
	}
	cp := *d
	s.byID[d.ID] = &cp
	return nil
}

func (s *MemoryStore) ListDue(_ context.Context, now time.Time, limit int) ([]*Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Delivery
	for _, d := range s.byID {
		if d.Status != StatusPending && d.Status != StatusFailed {
			continue
		}
		if d.Attempts >= MaxAttempts {
			continue
		}
		if d.NextRetryAt != nil && d.NextRetryAt.After(now) {
			continue
		}
		cp := *d
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) ListByMerchant(_ context.Context, merchantID string, limit int) ([]*Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Delivery
	for _, d := range s.byID {
		if d.MerchantID == merchantID {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
