package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tucanopay/tucano/internal/counters"
)

func newClockedLimiter() (*Limiter, *counters.MemoryStore, func(time.Duration)) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := counters.NewMemoryStore()
	store.SetClock(func() time.Time { return now })
	advance := func(d time.Duration) {
		now = now.Add(d)
		store.SetClock(func() time.Time { return now })
	}
	return New(store), store, advance
}

func TestCheck_EleventhCallDenied(t *testing.T) {
	l, _, _ := newClockedLimiter()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		res, err := l.Check(ctx, "ip1", 10, time.Minute)
		if err != nil {
			t.Fatalf("Check failed: %v", err)
		}
		if !res.Allowed {
			t.Fatalf("Call %d should be allowed", i+1)
		}
	}

	res, _ := l.Check(ctx, "ip1", 10, time.Minute)
	if res.Allowed {
		t.Error("11th call within the window should be denied")
	}
	if res.Remaining != 0 {
		t.Errorf("Expected 0 remaining, got %d", res.Remaining)
	}
}

func TestCheck_WindowSlides(t *testing.T) {
	l, _, advance := newClockedLimiter()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		l.Check(ctx, "ip1", 10, time.Minute)
	}

	// Sliding, not bucketed: half a window later the old entries still
	// count, so the next call is denied.
	advance(30 * time.Second)
	res, _ := l.Check(ctx, "ip1", 10, time.Minute)
	if res.Allowed {
		t.Error("Call at +30s should still be denied")
	}

	// Once the original burst ages out, calls are admitted again.
	advance(61 * time.Second)
	res, _ = l.Check(ctx, "ip1", 10, time.Minute)
	if !res.Allowed {
		t.Error("Call after window elapsed should be allowed")
	}
}

func TestCheck_KeysAreIndependent(t *testing.T) {
	l, _, _ := newClockedLimiter()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		l.Check(ctx, "ip1", 10, time.Minute)
	}

	res, _ := l.Check(ctx, "ip2", 10, time.Minute)
	if !res.Allowed {
		t.Error("Different key should not share the window")
	}
}

func TestMiddleware_Returns429(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l, _, _ := newClockedLimiter()

	router := gin.New()
	router.Use(l.Middleware(Config{RequestsPerMinute: 2}))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	var last int
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/ping", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		router.ServeHTTP(w, req)
		last = w.Code
	}

	if last != http.StatusTooManyRequests {
		t.Errorf("Expected 429 on third request, got %d", last)
	}
}
