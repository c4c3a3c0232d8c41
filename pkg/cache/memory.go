package cache

import (
	"context"
	"sync"
)

const backendMemory = "memory"

// MemoryStore is the in-process Store. Entries are never evicted; a stale
// entry is simply not returned.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*CacheEntry
	opts    Options
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts Options) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*CacheEntry),
		opts:    opts.withDefaults(),
	}
}

// Get returns a copy of the entry for key if it is still fresh.
func (s *MemoryStore) Get(_ context.Context, key CacheKey) (*CacheEntry, error) {
	k := key.String()

	s.mu.RLock()
	entry, ok := s.entries[k]
	s.mu.RUnlock()

	if !ok {
		CacheMisses.WithLabelValues("absent").Inc()
		return nil, ErrCacheMiss
	}

	if !entry.IsFresh(s.opts.Now(), s.opts.TTL) {
		CacheMisses.WithLabelValues("stale").Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues(backendMemory).Inc()
	return entry.Clone(), nil
}

// Put stores a private copy of data under key.
func (s *MemoryStore) Put(_ context.Context, key CacheKey, data []byte) error {
	k := key.String()
	owned := make([]byte, len(data))
	copy(owned, data)

	entry := &CacheEntry{
		Key:      k,
		Data:     owned,
		StoredAt: s.opts.Now(),
	}

	s.mu.Lock()
	s.entries[k] = entry
	size := len(s.entries)
	s.mu.Unlock()

	CacheEntries.WithLabelValues(backendMemory).Set(float64(size))
	return nil
}

// Len returns the number of stored entries, stale ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close drops all entries.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.entries = make(map[string]*CacheEntry)
	s.mu.Unlock()

	CacheEntries.WithLabelValues(backendMemory).Set(0)
	return nil
}

var _ Store = (*MemoryStore)(nil)
