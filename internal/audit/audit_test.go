package audit

import (
	"context"
	"testing"
	"time"
)

func TestRecord_FillsActorFromContext(t *testing.T) {
	l := NewMemoryLogger()

	ctx := WithActor(context.Background(), "merchant", "mch_1")
	ctx = WithIP(ctx, "203.0.113.9")
	ctx = WithRequestID(ctx, "req_1")

	err := Record(ctx, l, &Entry{
		Action:     "antifraud.rejected",
		Resource:   "payment_attempt",
		ResourceID: "203.0.113.9",
	})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	entries := l.Entries()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.ActorType != "merchant" || e.ActorID != "mch_1" {
		t.Errorf("Actor not filled from context: %+v", e)
	}
	if e.IPAddress != "203.0.113.9" || e.RequestID != "req_1" {
		t.Errorf("IP/request ID not filled from context: %+v", e)
	}
	if e.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestRecord_DefaultsToSystemActor(t *testing.T) {
	l := NewMemoryLogger()
	Record(context.Background(), l, &Entry{Action: "reconciliation.completed", Resource: "reconciliation"})

	if got := l.Entries()[0].ActorType; got != "system" {
		t.Errorf("Expected system actor, got %q", got)
	}
}

func TestRecord_NilLoggerIsNoop(t *testing.T) {
	if err := Record(context.Background(), nil, &Entry{Action: "x", Resource: "y"}); err != nil {
		t.Errorf("Expected nil logger to be a no-op, got %v", err)
	}
}

func TestMemoryLogger_QueryFilters(t *testing.T) {
	l := NewMemoryLogger()
	ctx := context.Background()

	l.Log(ctx, &Entry{ActorType: "system", Action: "webhook.delivered", Resource: "webhook_delivery", ResourceID: "whd_1"})
	l.Log(ctx, &Entry{ActorType: "system", Action: "webhook.permanently_failed", Resource: "webhook_delivery", ResourceID: "whd_2"})
	l.Log(ctx, &Entry{ActorType: "system", Action: "reconciliation.mismatch", Resource: "payment", ResourceID: "pay_1"})

	got, _ := l.Query(ctx, "webhook_delivery", "", time.Time{}, time.Time{}, "", 10)
	if len(got) != 2 {
		t.Errorf("Expected 2 webhook_delivery entries, got %d", len(got))
	}

	got, _ = l.Query(ctx, "webhook_delivery", "whd_2", time.Time{}, time.Time{}, "", 10)
	if len(got) != 1 || got[0].ResourceID != "whd_2" {
		t.Errorf("ResourceID filter failed: %+v", got)
	}

	got, _ = l.Query(ctx, "webhook_delivery", "", time.Time{}, time.Time{}, "webhook.delivered", 10)
	if len(got) != 1 || got[0].Action != "webhook.delivered" {
		t.Errorf("Action filter failed: %+v", got)
	}
}
