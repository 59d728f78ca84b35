// Package counters provides the shared low-latency store backing replay
// protection, rate limiting, and the adaptive antifraud ladder.
//
// The store exposes four primitive operations: append a timestamped entry
// to a sliding window and count it, count without appending, set a key with
// expiry only if absent, and test key existence. Production deployments use
// Redis; the in-memory implementation serves tests and redis-less setups.
package counters

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tucanopay/tucano/internal/idgen"
)

// Store is the shared counter and nonce store.
type Store interface {
	// RecordInWindow appends a timestamped entry under key, prunes entries
	// older than window, and returns the post-prune count including the new
	// entry. The append-prune-count sequence is atomic.
	RecordInWindow(ctx context.Context, key string, window time.Duration) (int64, error)

	// CountInWindow returns the number of entries under key within window,
	// without appending.
	CountInWindow(ctx context.Context, key string, window time.Duration) (int64, error)

	// SetNX sets key with the given TTL if it does not exist. Returns true
	// if the key was set, false if it already existed.
	SetNX(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Exists reports whether key is present and unexpired.
	Exists(ctx context.Context, key string) (bool, error)
}

// RedisStore implements Store on Redis. Windows are sorted sets scored by
// nanosecond timestamps; nonces and blocks are plain keys with TTL.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) RecordInWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	now := time.Now()
	cutoff := now.Add(-window).UnixNano()

	var card *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(cutoff, 10))
		pipe.ZAdd(ctx, key, redis.Z{
			Score:  float64(now.UnixNano()),
			Member: strconv.FormatInt(now.UnixNano(), 10) + ":" + idgen.Hex(4),
		})
		card = pipe.ZCard(ctx, key)
		pipe.Expire(ctx, key, window)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return card.Val(), nil
}

func (s *RedisStore) CountInWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	cutoff := time.Now().Add(-window).UnixNano()
	return s.client.ZCount(ctx, key, strconv.FormatInt(cutoff, 10), "+inf").Result()
}

func (s *RedisStore) SetNX(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, "1", ttl).Result()
}

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MemoryStore is a mutex-guarded in-memory implementation of Store.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	keys    map[string]time.Time // key -> expiry

	// now is overridable for tests.
	now func() time.Time
}

// NewMemoryStore creates an in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		windows: make(map[string][]time.Time),
		keys:    make(map[string]time.Time),
		now:     time.Now,
	}
}

// SetClock overrides the store's clock (for tests).
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) RecordInWindow(_ context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	entries := append(s.windows[key], now)
	entries = pruneBefore(entries, now.Add(-window))
	s.windows[key] = entries
	return int64(len(entries)), nil
}

func (s *MemoryStore) CountInWindow(_ context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	entries := pruneBefore(s.windows[key], now.Add(-window))
	s.windows[key] = entries
	return int64(len(entries)), nil
}

func (s *MemoryStore) SetNX(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if exp, ok := s.keys[key]; ok && exp.After(now) {
		return false, nil
	}
	s.keys[key] = now.Add(ttl)
	return true, nil
}

func (s *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.keys[key]
	if !ok {
		return false, nil
	}
	if !exp.After(s.now()) {
		delete(s.keys, key)
		return false, nil
	}
	return true, nil
}

// pruneBefore drops entries strictly older than cutoff. Entries are
// appended in time order, so a single scan from the front suffices.
func pruneBefore(entries []time.Time, cutoff time.Time) []time.Time {
	start := 0
	for start < len(entries) && entries[start].Before(cutoff) {
		start++
	}
	if start > 0 {
		entries = entries[start:]
	}
	return entries
}
