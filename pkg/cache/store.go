package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCacheMiss indicates the key is absent or its entry is no longer fresh
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Store is the process-wide response cache shared by all handlers.
//
// Get returns a copy of the entry only while it is fresh; a stale entry is
// reported as ErrCacheMiss but stays in the store until Put overwrites it.
// Put unconditionally overwrites and records the current time. Concurrent
// Puts to the same key are last-write-wins.
type Store interface {
	Get(ctx context.Context, key CacheKey) (*CacheEntry, error)
	Put(ctx context.Context, key CacheKey, data []byte) error
	Close() error
}

// Options configures a store.
type Options struct {
	// TTL is the freshness window (default DefaultTTL)
	TTL time.Duration

	// Now is the clock used for StoredAt and freshness checks (default time.Now)
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}
