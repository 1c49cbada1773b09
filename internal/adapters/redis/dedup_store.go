package redis

// Package redis provides Redis-backed adapters for the session bootstrap
// subsystem.

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agrilink/sessiongate/internal/ports"
)

// DedupStore is a Redis-backed de-duplication marker store. Markers are
// claimed with SET NX and evicted by TTL, so overlapping load attempts for
// the same key collapse across every process sharing the Redis instance.
type DedupStore struct {
	client redis.UniversalClient
	prefix string
}

var _ ports.DedupStore = (*DedupStore)(nil)

// NewDedupStore creates a Redis-based dedup store.
func NewDedupStore(client redis.UniversalClient) *DedupStore {
	return &DedupStore{client: client, prefix: "dedup:"}
}

// NewDedupStoreWithPrefix creates a dedup store with a custom key prefix.
func NewDedupStoreWithPrefix(client redis.UniversalClient, prefix string) *DedupStore {
	return &DedupStore{client: client, prefix: prefix}
}

// Acquire atomically claims key for ttl. Returns false when another attempt
// already holds it.
func (s *DedupStore) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if key == "" {
		return false, errors.New("dedup key cannot be empty")
	}
	if ttl <= 0 {
		return false, errors.New("dedup ttl must be positive")
	}
	ok, err := s.client.SetNX(ctx, s.prefix+key, 1, ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// Release drops the marker early so the next legitimate attempt is not
// suppressed for the remainder of the window.
func (s *DedupStore) Release(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	return s.client.Del(ctx, s.prefix+key).Err()
}
