package merchants

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for demo/testing.
type MemoryStore struct {
	mu        sync.RWMutex
	merchants map[string]*Merchant
	keys      map[string]*APIKey   // by ID
	endpoints map[string]*Endpoint // by ID
}

// NewMemoryStore creates an in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		merchants: make(map[string]*Merchant),
		keys:      make(map[string]*APIKey),
		endpoints: make(map[string]*Endpoint),
	}
}

func (s *MemoryStore) CreateMerchant(_ context.Context, m *Merchant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.merchants[m.ID] = &cp
	return nil
}

func (s *MemoryStore) GetMerchant(_ context.Context, id string) (*Merchant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m, ok := s.merchants[id]; ok {
		cp := *m
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) CreateAPIKey(_ context.Context, k *APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *k
	s.keys[k.ID] = &cp
	return nil
}

func (s *MemoryStore) GetAPIKeyByKeyID(_ context.Context, keyID string) (*APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, k := range s.keys {
		if k.KeyID == keyID {
			cp := *k
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) TouchAPIKey(_ context.Context, id string, usedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if k, ok := s.keys[id]; ok {
		k.LastUsedAt = &usedAt
		return nil
	}
	return ErrNotFound
}

func (s *MemoryStore) CreateEndpoint(_ context.Context, e *Endpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.endpoints[e.ID] = &cp
	return nil
}

func (s *MemoryStore) GetActiveEndpoint(_ context.Context, merchantID string) (*Endpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.endpoints {
		if e.MerchantID == merchantID && e.Active {
			cp := *e
			return &cp, nil
		}
	}
	return nil, ErrNoActiveEndpoint
}

func (s *MemoryStore) ListEndpoints(_ context.Context, merchantID string) ([]*Endpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*Endpoint
	for _, e := range s.endpoints {
		if e.MerchantID == merchantID {
			cp := *e
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (s *MemoryStore) UpdateEndpoint(_ context.Context, e *Endpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.endpoints[e.ID]; !ok {
		return ErrNotFound
	}
	cp := *e
	s.endpoints[e.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteEndpoint(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.endpoints, id)
	return nil
}
