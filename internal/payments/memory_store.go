package payments

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for demo/testing.
type MemoryStore struct {
	mu       sync.RWMutex
	payments map[string]*Payment
}

// NewMemoryStore creates an in-memory payment store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{payments: make(map[string]*Payment)}
}

func (s *MemoryStore) Create(_ context.Context, p *Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.payments[p.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.payments[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GetByProviderPaymentID(_ context.Context, provider, providerPaymentID string) (*Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.payments {
		if p.Provider == provider && p.ProviderPaymentID == providerPaymentID && providerPaymentID != "" {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) UpdateStatus(_ context.Context, id string, status Status, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return ErrNotFound
	}
	p.Status = status
	p.UpdatedAt = at
	if status == StatusPaid && p.PaidAt == nil {
		paidAt := at
		p.PaidAt = &paidAt
	}
	return nil
}

func (s *MemoryStore) ListByDateRange(_ context.Context, provider string, from, to time.Time) ([]*Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*Payment
	for _, p := range s.payments {
		if p.Provider != provider || p.ProviderPaymentID == "" {
			continue
		}
		if p.CreatedAt.Before(from) || !p.CreatedAt.Before(to) {
			continue
		}
		cp := *p
		result = append(result, &cp)
	}
	return result, nil
}
