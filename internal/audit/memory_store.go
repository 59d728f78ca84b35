package audit

import (
	"context"
	"sync"
	"time"
)

// MemoryLogger stores audit entries in memory for demo/testing.
type MemoryLogger struct {
	entries []*Entry
	nextID  int64
	mu      sync.RWMutex
}

// NewMemoryLogger creates an in-memory audit logger.
func NewMemoryLogger() *MemoryLogger {
	return &MemoryLogger{}
}

func (l *MemoryLogger) Log(_ context.Context, entry *Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	cp := *entry
	cp.ID = l.nextID
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	l.entries = append(l.entries, &cp)
	return nil
}

func (l *MemoryLogger) Query(_ context.Context, resource, resourceID string, from, to time.Time, action string, limit int) ([]*Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	var result []*Entry
	// Iterate in reverse for descending order.
	for i := len(l.entries) - 1; i >= 0 && len(result) < limit; i-- {
		e := l.entries[i]
		if e.Resource != resource {
			continue
		}
		if resourceID != "" && e.ResourceID != resourceID {
			continue
		}
		if !from.IsZero() && e.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && e.CreatedAt.After(to) {
			continue
		}
		if action != "" && e.Action != action {
			continue
		}
		cp := *e
		result = append(result, &cp)
	}
	return result, nil
}

// Entries returns all stored audit entries (for testing).
func (l *MemoryLogger) Entries() []*Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]*Entry, len(l.entries))
	copy(result, l.entries)
	return result
}

// ByAction returns stored entries matching the given action (for testing).
func (l *MemoryLogger) ByAction(action string) []*Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var result []*Entry
	for _, e := range l.entries {
		if e.Action == action {
			result = append(result, e)
		}
	}
	return result
}
