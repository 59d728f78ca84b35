// Package ratelimit provides sliding-window rate limiting for the API.
//
// Unlike a fixed-bucket limiter, the window trails the current instant:
// a request is admitted iff the number of requests in the last window
// (including this one) does not exceed the limit.
package ratelimit

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tucanopay/tucano/internal/counters"
)

// Config configures the rate-limiting middleware.
type Config struct {
	// RequestsPerMinute is the max requests per key per minute.
	RequestsPerMinute int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{RequestsPerMinute: 120}
}

// Result is the outcome of a rate-limit check.
type Result struct {
	Allowed   bool
	Remaining int64
	ResetAt   time.Time
}

// Limiter enforces sliding-window limits on the shared counter store.
type Limiter struct {
	store counters.Store
}

// New creates a limiter backed by the given store.
func New(store counters.Store) *Limiter {
	return &Limiter{store: store}
}

// Check records the current request under key and decides admission.
// The record-prune-count sequence is a single atomic store operation, so
// two near-boundary concurrent callers cannot both slip under the limit.
func (l *Limiter) Check(ctx context.Context, key string, limit int64, window time.Duration) (Result, error) {
	count, err := l.store.RecordInWindow(ctx, "rl:"+key, window)
	if err != nil {
		return Result{}, err
	}

	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   count <= limit,
		Remaining: remaining,
		ResetAt:   time.Now().Add(window),
	}, nil
}

// Middleware returns a gin middleware limiting requests per client IP,
// or per API key for authenticated callers. Store failures admit the
// request: losing rate limiting briefly is preferable to a full outage.
func (l *Limiter) Middleware(cfg Config) gin.HandlerFunc {
	limit := int64(cfg.RequestsPerMinute)
	return func(c *gin.Context) {
		key := c.ClientIP()
		if apiKey := c.GetHeader("X-Api-Key"); apiKey != "" {
			key = "key:" + apiKey
		}

		res, err := l.Check(c.Request.Context(), key, limit, time.Minute)
		if err != nil {
			c.Next()
			return
		}

		if !res.Allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate_limit_exceeded",
				"message":     "Too many requests. Please slow down.",
				"retry_after": int(time.Until(res.ResetAt).Seconds()),
			})
			return
		}

		c.Next()
	}
}
