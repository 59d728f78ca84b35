package antifraud

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/tucanopay/tucano/internal/audit"
	"github.com/tucanopay/tucano/internal/counters"
)

type testClock struct {
	t time.Time
}

func (c *testClock) Now() time.Time          { return c.t }
func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestEngine() (*Engine, *MemoryBlacklist, *audit.MemoryLogger, *testClock) {
	clock := &testClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := counters.NewMemoryStore()
	store.SetClock(clock.Now)
	blacklist := NewMemoryBlacklist()
	auditor := audit.NewMemoryLogger()
	engine := NewEngine(store, blacklist, auditor, slog.Default())
	return engine, blacklist, auditor, clock
}

func TestCheckPayment_CleanAttemptAllowed(t *testing.T) {
	engine, _, auditor, _ := newTestEngine()

	d := engine.CheckPayment(context.Background(), "198.51.100.1", "12345678901", "411111", 5000)
	if !d.Allowed {
		t.Fatalf("Expected clean attempt to be allowed, got %+v", d)
	}
	if len(auditor.Entries()) != 0 {
		t.Error("Allowed attempt should not be audited")
	}
}

func TestCheckPayment_CPFBlacklist(t *testing.T) {
	engine, blacklist, auditor, _ := newTestEngine()
	ctx := context.Background()

	blacklist.AddCPF(ctx, "12345678901", "chargeback fraud")

	d := engine.CheckPayment(ctx, "198.51.100.1", "12345678901", "", 5000)
	if d.Allowed || d.Rule != RuleCPFBlacklist {
		t.Errorf("Expected CpfBlacklist rejection, got %+v", d)
	}
	if len(auditor.ByAction("antifraud.rejected")) != 1 {
		t.Error("Rejection must be audited")
	}
}

func TestCheckPayment_BINBlacklist(t *testing.T) {
	engine, blacklist, _, _ := newTestEngine()
	ctx := context.Background()

	blacklist.AddBIN(ctx, "999999", "test bin")

	d := engine.CheckPayment(ctx, "198.51.100.1", "", "999999", 5000)
	if d.Allowed || d.Rule != RuleBINBlacklist {
		t.Errorf("Expected BinBlacklist rejection, got %+v", d)
	}
}

func TestCheckPayment_Velocity(t *testing.T) {
	engine, _, _, _ := newTestEngine()
	ctx := context.Background()

	var d Decision
	for i := 0; i < 11; i++ {
		d = engine.CheckPayment(ctx, "198.51.100.7", "", "", 100)
	}
	if d.Allowed || d.Rule != RuleIPVelocity {
		t.Errorf("Expected IpVelocity rejection on 11th attempt, got %+v", d)
	}
}

func TestRecordFailedAttempt_ActivatesBlock(t *testing.T) {
	engine, _, auditor, _ := newTestEngine()
	ctx := context.Background()
	ip := "198.51.100.2"

	engine.RecordFailedAttempt(ctx, ip)
	engine.RecordFailedAttempt(ctx, ip)
	if engine.IsIPBlocked(ctx, ip) {
		t.Fatal("Two failures should not block yet")
	}

	engine.RecordFailedAttempt(ctx, ip)
	if !engine.IsIPBlocked(ctx, ip) {
		t.Fatal("Three failures within the window must block the ip")
	}

	d := engine.CheckPayment(ctx, ip, "", "", 100)
	if d.Allowed || d.Rule != RuleAdaptiveIPBlock {
		t.Errorf("Expected AdaptiveIpBlock rejection, got %+v", d)
	}

	if len(auditor.ByAction("antifraud.ip_block_activated")) != 1 {
		t.Error("Block activation must be audited exactly once")
	}
}

func TestRecordFailedAttempt_WindowExpires(t *testing.T) {
	engine, _, _, clock := newTestEngine()
	ctx := context.Background()
	ip := "198.51.100.3"

	engine.RecordFailedAttempt(ctx, ip)
	engine.RecordFailedAttempt(ctx, ip)

	// Failures age out of the 10-minute window before the third lands.
	clock.Advance(11 * time.Minute)
	engine.RecordFailedAttempt(ctx, ip)

	if engine.IsIPBlocked(ctx, ip) {
		t.Error("Failures outside the window must not count toward a block")
	}
}

func TestCheckPayment_AdaptiveBlockWinsOverBlacklist(t *testing.T) {
	engine, blacklist, _, _ := newTestEngine()
	ctx := context.Background()
	ip := "198.51.100.4"

	blacklist.AddCPF(ctx, "11122233344", "listed")
	blacklist.AddBIN(ctx, "555555", "listed")

	for i := 0; i < 3; i++ {
		engine.RecordFailedAttempt(ctx, ip)
	}

	d := engine.CheckPayment(ctx, ip, "11122233344", "555555", 100)
	if d.Rule != RuleAdaptiveIPBlock {
		t.Errorf("Adaptive block must take precedence over blacklists, got %+v", d)
	}
}

func TestCheckPayment_BlockExpires(t *testing.T) {
	engine, _, _, clock := newTestEngine()
	ctx := context.Background()
	ip := "198.51.100.5"

	for i := 0; i < 3; i++ {
		engine.RecordFailedAttempt(ctx, ip)
	}
	if !engine.IsIPBlocked(ctx, ip) {
		t.Fatal("Expected block active")
	}

	clock.Advance(61 * time.Minute)
	if engine.IsIPBlocked(ctx, ip) {
		t.Error("Block must expire after an hour")
	}
}
