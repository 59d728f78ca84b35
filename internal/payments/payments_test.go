package payments

import (
	"context"
	"testing"
	"time"
)

func TestStatusFromProvider(t *testing.T) {
	cases := []struct {
		in   string
		want Status
		ok   bool
	}{
		{"paid", StatusPaid, true},
		{"captured", StatusPaid, true},
		{"concluida", StatusPaid, true},
		{"  Captured ", StatusPaid, true},
		{"devolvida", StatusRefunded, true},
		{"recusada", StatusFailed, true},
		{"vencido", StatusExpired, true},
		{"waiting_payment", StatusPending, true},
		{"autorizada", StatusAuthorized, true},
		{"cancelada", StatusCancelled, true},
		{"something_else", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := StatusFromProvider(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("StatusFromProvider(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestMemoryStore_UpdateStatusSetsPaidAt(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	store.Create(ctx, &Payment{ID: "pay_1", Provider: "pixnow", ProviderPaymentID: "px_1", Status: StatusPending, CreatedAt: now, UpdatedAt: now})

	at := now.Add(time.Minute)
	if err := store.UpdateStatus(ctx, "pay_1", StatusPaid, at); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	p, _ := store.Get(ctx, "pay_1")
	if p.Status != StatusPaid {
		t.Errorf("Expected paid, got %s", p.Status)
	}
	if p.PaidAt == nil || !p.PaidAt.Equal(at) {
		t.Errorf("Expected PaidAt=%v, got %v", at, p.PaidAt)
	}

	// A second paid transition must not move PaidAt.
	later := at.Add(time.Hour)
	store.UpdateStatus(ctx, "pay_1", StatusPaid, later)
	p, _ = store.Get(ctx, "pay_1")
	if !p.PaidAt.Equal(at) {
		t.Error("PaidAt must be set exactly once")
	}
}

func TestMemoryStore_GetByProviderPaymentID(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.Create(ctx, &Payment{ID: "pay_1", Provider: "pixnow", ProviderPaymentID: "px_1"})
	store.Create(ctx, &Payment{ID: "pay_2", Provider: "boletohub", ProviderPaymentID: "px_1"})

	p, err := store.GetByProviderPaymentID(ctx, "pixnow", "px_1")
	if err != nil || p.ID != "pay_1" {
		t.Errorf("Expected pay_1, got %v (err %v)", p, err)
	}

	if _, err := store.GetByProviderPaymentID(ctx, "pixnow", "missing"); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := store.GetByProviderPaymentID(ctx, "pixnow", ""); err != ErrNotFound {
		t.Error("Empty provider payment id must never match")
	}
}

func TestMemoryStore_ListByDateRange(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	store.Create(ctx, &Payment{ID: "pay_1", Provider: "pixnow", ProviderPaymentID: "E1", CreatedAt: day.Add(2 * time.Hour)})
	store.Create(ctx, &Payment{ID: "pay_2", Provider: "pixnow", ProviderPaymentID: "E2", CreatedAt: day.Add(25 * time.Hour)})
	store.Create(ctx, &Payment{ID: "pay_3", Provider: "stripe", ProviderPaymentID: "E3", CreatedAt: day.Add(3 * time.Hour)})
	store.Create(ctx, &Payment{ID: "pay_4", Provider: "pixnow", CreatedAt: day.Add(4 * time.Hour)})

	got, _ := store.ListByDateRange(ctx, "pixnow", day, day.Add(24*time.Hour))
	if len(got) != 1 || got[0].ID != "pay_1" {
		t.Errorf("Expected only pay_1 in range, got %+v", got)
	}
}
