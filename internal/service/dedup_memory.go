package service

import (
	"context"
	"sync"
	"time"

	"github.com/agrilink/sessiongate/internal/ports"
)

// MemoryDedupStore is the process-local fallback for the de-duplication
// marker store, used when no Redis instance is configured. Entries are
// insert-only with lazy timed eviction.
type MemoryDedupStore struct {
	mu      sync.Mutex
	entries map[string]time.Time // key -> expiry
	now     func() time.Time
}

var _ ports.DedupStore = (*MemoryDedupStore)(nil)

// NewMemoryDedupStore creates an in-memory dedup store.
func NewMemoryDedupStore() *MemoryDedupStore {
	return &MemoryDedupStore{entries: make(map[string]time.Time), now: time.Now}
}

// NewMemoryDedupStoreWithClock creates a store with an injected clock (useful for tests).
func NewMemoryDedupStoreWithClock(now func() time.Time) *MemoryDedupStore {
	return &MemoryDedupStore{entries: make(map[string]time.Time), now: now}
}

// Acquire claims key for ttl. Returns false when a live marker already holds it.
func (s *MemoryDedupStore) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if expiry, held := s.entries[key]; held && now.Before(expiry) {
		return false, nil
	}
	s.entries[key] = now.Add(ttl)
	s.evictExpiredLocked(now)
	return true, nil
}

// Release drops the marker early.
func (s *MemoryDedupStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *MemoryDedupStore) evictExpiredLocked(now time.Time) {
	for k, expiry := range s.entries {
		if !now.Before(expiry) {
			delete(s.entries, k)
		}
	}
}
