package cache

import (
	"time"
)

// DefaultTTL is the freshness window for cached responses.
const DefaultTTL = 300 * time.Second

// CacheEntry represents a cached proxy response document.
type CacheEntry struct {
	// Key is the rendered cache key
	Key string `json:"key"`

	// Data is the JSON document returned to clients
	Data []byte `json:"data"`

	// StoredAt is when the entry was written
	StoredAt time.Time `json:"stored_at"`
}

// IsFresh reports whether the entry may still be served at now.
// An entry is stale once now - StoredAt >= ttl.
func (e *CacheEntry) IsFresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.StoredAt) < ttl
}

// Age returns how long ago the entry was stored.
func (e *CacheEntry) Age(now time.Time) time.Duration {
	age := now.Sub(e.StoredAt)
	if age < 0 {
		return 0
	}
	return age
}

// Clone returns a deep copy so callers never alias store-owned bytes.
func (e *CacheEntry) Clone() *CacheEntry {
	data := make([]byte, len(e.Data))
	copy(data, e.Data)
	return &CacheEntry{
		Key:      e.Key,
		Data:     data,
		StoredAt: e.StoredAt,
	}
}
