package protect

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"acquisitions/internal/cache"
)

// WindowState is a window store's answer for one hit.
type WindowState struct {
	Allowed    bool
	Count      int
	ResetAfter time.Duration
}

// WindowStore keeps sliding-window hit logs.
type WindowStore interface {
	Hit(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (WindowState, error)
}

// SlidingWindow limits requests per client IP to Max within the trailing Interval.
type SlidingWindow struct {
	Mode     Mode
	Name     string
	Interval time.Duration
	Max      int
	Store    WindowStore
	// Now defaults to time.Now.
	Now func() time.Time
}

// Evaluate implements Rule.
func (w SlidingWindow) Evaluate(ctx context.Context, req Request) (RuleResult, error) {
	now := time.Now()
	if w.Now != nil {
		now = w.Now()
	}

	state, err := w.Store.Hit(ctx, w.Name+":"+req.IP, now, w.Interval, w.Max)
	if err != nil {
		return RuleResult{}, fmt.Errorf("rule %s: %w", w.Name, err)
	}

	res := RuleResult{
		Rule:       w.Name,
		Reason:     ReasonRateLimit,
		Mode:       w.Mode,
		Conclusion: Allow,
		Max:        w.Max,
		Remaining:  w.Max - state.Count,
		ResetAfter: state.ResetAfter,
	}
	if !state.Allowed {
		res.Conclusion = Deny
		res.Remaining = 0
	}
	if res.Remaining < 0 {
		res.Remaining = 0
	}
	return res, nil
}

// RedisWindowStore keeps hit logs in redis sorted sets so every instance of
// the service shares them.
type RedisWindowStore struct {
	client *cache.Client
	prefix string
}

var _ WindowStore = (*RedisWindowStore)(nil)

// NewRedisWindowStore creates a store whose keys start with prefix.
func NewRedisWindowStore(client *cache.Client, prefix string) *RedisWindowStore {
	return &RedisWindowStore{client: client, prefix: prefix}
}

// Hit implements WindowStore.
func (s *RedisWindowStore) Hit(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (WindowState, error) {
	res, err := s.client.SlidingWindowHit(ctx, s.prefix+key, now, window, limit, uuid.NewString())
	if err != nil {
		return WindowState{}, err
	}
	return WindowState{
		Allowed:    res.Allowed,
		Count:      int(res.Count),
		ResetAfter: res.ResetAfter,
	}, nil
}

// MemoryWindowStore keeps hit logs in process memory. It suits a single
// instance and tests.
type MemoryWindowStore struct {
	mu   sync.Mutex
	hits map[string][]time.Time
}

var _ WindowStore = (*MemoryWindowStore)(nil)

// NewMemoryWindowStore creates an empty store.
func NewMemoryWindowStore() *MemoryWindowStore {
	return &MemoryWindowStore{hits: make(map[string][]time.Time)}
}

// Hit implements WindowStore.
func (s *MemoryWindowStore) Hit(_ context.Context, key string, now time.Time, window time.Duration, limit int) (WindowState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-window)
	log := s.hits[key]
	kept := log[:0]
	for _, t := range log {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	state := WindowState{Count: len(kept)}
	if len(kept) < limit {
		kept = append(kept, now)
		state.Allowed = true
		state.Count = len(kept)
	}

	if len(kept) == 0 {
		delete(s.hits, key)
		state.ResetAfter = window
		return state, nil
	}
	s.hits[key] = kept
	state.ResetAfter = kept[0].Add(window).Sub(now)
	return state, nil
}
