package kvstore

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore is an in-process backing store with native per-key TTL.
// Intended for tests and single-process development; state does not survive
// a restart. It is a backend in its own right, never a cache layered in
// front of another store.
type MemoryStore struct {
	cache *cache.Cache
}

// NewMemoryStore creates a memory store that sweeps expired entries every
// cleanupInterval.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	return &MemoryStore{
		cache: cache.New(cache.NoExpiration, cleanupInterval),
	}
}

// Get retrieves a value by key.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	value, found := s.cache.Get(key)
	if !found {
		return nil, ErrKeyNotFound
	}
	return value.([]byte), nil
}

// Set stores a copy of value under key with the given TTL.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	buf := make([]byte, len(value))
	copy(buf, value)

	expiration := cache.NoExpiration
	if ttl > 0 {
		expiration = ttl
	}
	s.cache.Set(key, buf, expiration)
	return nil
}

// Ping always succeeds for the in-process store.
func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}

// Close flushes all entries.
func (s *MemoryStore) Close() error {
	s.cache.Flush()
	return nil
}
