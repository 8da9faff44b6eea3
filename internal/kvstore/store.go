package kvstore

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound is returned by Get when a key is absent or its TTL lapsed.
var ErrKeyNotFound = errors.New("kvstore: key not found")

// Store is the backing-store protocol for thread records: an external
// key-value store with per-key TTL. Values are opaque serialized records.
// Every call is an I/O boundary and must honor the caller's context deadline.
// Set is all-or-nothing at the store-write level.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Ping(ctx context.Context) error
	Close() error
}
