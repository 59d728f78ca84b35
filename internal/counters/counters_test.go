package counters

import (
	"context"
	"testing"
	"time"
)

// fakeClock lets tests advance time manually.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClockedStore() (*MemoryStore, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStore()
	store.SetClock(clock.Now)
	return store, clock
}

func TestRecordInWindow_CountsEntries(t *testing.T) {
	store, _ := newClockedStore()
	ctx := context.Background()

	for i := int64(1); i <= 5; i++ {
		count, err := store.RecordInWindow(ctx, "k", time.Minute)
		if err != nil {
			t.Fatalf("RecordInWindow failed: %v", err)
		}
		if count != i {
			t.Errorf("Expected count %d, got %d", i, count)
		}
	}
}

func TestRecordInWindow_PrunesOldEntries(t *testing.T) {
	store, clock := newClockedStore()
	ctx := context.Background()

	store.RecordInWindow(ctx, "k", time.Minute)
	store.RecordInWindow(ctx, "k", time.Minute)

	clock.Advance(61 * time.Second)

	count, _ := store.RecordInWindow(ctx, "k", time.Minute)
	if count != 1 {
		t.Errorf("Expected old entries pruned, got count %d", count)
	}
}

func TestCountInWindow_DoesNotAppend(t *testing.T) {
	store, _ := newClockedStore()
	ctx := context.Background()

	store.RecordInWindow(ctx, "k", time.Minute)

	for i := 0; i < 3; i++ {
		count, _ := store.CountInWindow(ctx, "k", time.Minute)
		if count != 1 {
			t.Errorf("CountInWindow mutated the window: got %d", count)
		}
	}
}

func TestSetNX_OnlyFirstWins(t *testing.T) {
	store, _ := newClockedStore()
	ctx := context.Background()

	set, err := store.SetNX(ctx, "nonce:a", time.Hour)
	if err != nil || !set {
		t.Fatalf("Expected first SetNX to succeed, got set=%v err=%v", set, err)
	}

	set, _ = store.SetNX(ctx, "nonce:a", time.Hour)
	if set {
		t.Error("Expected second SetNX to report existing key")
	}
}

func TestSetNX_ExpiryFreesKey(t *testing.T) {
	store, clock := newClockedStore()
	ctx := context.Background()

	store.SetNX(ctx, "nonce:a", time.Minute)

	exists, _ := store.Exists(ctx, "nonce:a")
	if !exists {
		t.Fatal("Expected key to exist before expiry")
	}

	clock.Advance(2 * time.Minute)

	exists, _ = store.Exists(ctx, "nonce:a")
	if exists {
		t.Error("Expected key to be gone after expiry")
	}

	set, _ := store.SetNX(ctx, "nonce:a", time.Minute)
	if !set {
		t.Error("Expected SetNX to succeed after previous entry expired")
	}
}

func TestExists_MissingKey(t *testing.T) {
	store, _ := newClockedStore()
	exists, err := store.Exists(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("Expected missing key to not exist")
	}
}
