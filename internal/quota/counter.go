// Package quota provides the atomic counter backends used for guest
// (IP-keyed) rate limiting.
package quota

import (
	"context"
	"sync"
	"time"
)

// CounterStore is an atomic increment-and-read counter with per-key expiry.
// The first increment of a period sets the expiry for the key.
type CounterStore interface {
	// Increment adds one to the counter for key and returns the new value.
	Increment(ctx context.Context, key string, expiry time.Duration) (int64, error)
}

// MemoryCounterStore is a single-process CounterStore fallback used when the
// shared backend is unavailable. It does not coordinate across instances, so
// under horizontal scaling each process counts independently.
type MemoryCounterStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
}

type memoryEntry struct {
	count   int64
	resetAt time.Time
}

// NewMemoryCounterStore creates an empty in-process counter store.
func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{entries: make(map[string]*memoryEntry)}
}

// Increment implements CounterStore.
func (s *MemoryCounterStore) Increment(ctx context.Context, key string, expiry time.Duration) (int64, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || now.After(e.resetAt) {
		e = &memoryEntry{resetAt: now.Add(expiry)}
		s.entries[key] = e
	}
	e.count++

	// Opportunistic sweep of expired keys to bound memory.
	if len(s.entries) > 4096 {
		for k, v := range s.entries {
			if now.After(v.resetAt) {
				delete(s.entries, k)
			}
		}
	}
	return e.count, nil
}
