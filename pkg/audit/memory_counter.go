package audit

import (
	"context"
	"sync"
	"time"
)

type windowCounter struct {
	count        int64
	lastDenialAt time.Time
}

// MemoryCounterStore is the single-instance counter backend. The window
// slides with each denial, like the Redis backend's refreshed TTL; counters
// reset lazily on increment and there is no background sweeper.
type MemoryCounterStore struct {
	mu       sync.Mutex
	counters map[string]*windowCounter
}

// NewMemoryCounterStore creates an in-memory counter store.
func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{
		counters: make(map[string]*windowCounter),
	}
}

// Increment bumps the counter for a key, restarting the count when more
// than the window has passed since the previous denial. Denials spaced
// under the window apart keep counting indefinitely.
func (s *MemoryCounterStore) Increment(_ context.Context, key string, now time.Time, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[key]
	if !ok || now.Sub(c.lastDenialAt) > window {
		s.counters[key] = &windowCounter{count: 1, lastDenialAt: now}
		return 1, nil
	}

	c.count++
	c.lastDenialAt = now
	return c.count, nil
}

// Reset removes the counter for a key.
func (s *MemoryCounterStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.counters, key)
	return nil
}

// Active returns the number of live counters, for the metrics gauge.
// Lapsed windows that were never incremented again still count until
// their next touch.
func (s *MemoryCounterStore) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.counters)
}
