package antifraud

import (
	"context"
	"sync"
)

// MemoryBlacklist is an in-memory BlacklistStore for demo/testing.
type MemoryBlacklist struct {
	mu   sync.RWMutex
	cpfs map[string]string // value -> reason
	bins map[string]string
}

// NewMemoryBlacklist creates an in-memory blacklist store.
func NewMemoryBlacklist() *MemoryBlacklist {
	return &MemoryBlacklist{
		cpfs: make(map[string]string),
		bins: make(map[string]string),
	}
}

func (m *MemoryBlacklist) IsCPFBlacklisted(_ context.Context, cpf string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.cpfs[cpf]
	return ok, nil
}

func (m *MemoryBlacklist) IsBINBlacklisted(_ context.Context, bin string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.bins[bin]
	return ok, nil
}

func (m *MemoryBlacklist) AddCPF(_ context.Context, cpf, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cpfs[cpf] = reason
	return nil
}

func (m *MemoryBlacklist) AddBIN(_ context.Context, bin, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bins[bin] = reason
	return nil
}

func (m *MemoryBlacklist) RemoveCPF(_ context.Context, cpf string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cpfs, cpf)
	return nil
}

func (m *MemoryBlacklist) RemoveBIN(_ context.Context, bin string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.bins, bin)
	return nil
}
