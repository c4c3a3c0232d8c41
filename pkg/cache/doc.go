// Package cache provides the proxy response cache.
//
// Every handled operation is cached under a deterministic key derived from
// the operation name and its normalized parameters:
//
// - Keys list path parameters, then query parameters, each sorted by name
// - Values are query-escaped, so separators inside values cannot collide
// - Entries are fresh while now - StoredAt < TTL (300s by default)
// - Stale entries are not returned but stay stored until overwritten
// - Readers always get a copy of the stored bytes
//
// # Basic Usage
//
//	store := cache.NewMemoryStore(cache.Options{TTL: 5 * time.Minute})
//
//	key := cache.CacheKey{
//		Operation:   "manga_list",
//		QueryParams: url.Values{"page": []string{"1"}, "type": []string{"project"}},
//	}
//
//	entry, err := store.Get(ctx, key)
//	if err == cache.ErrCacheMiss {
//		// fetch upstream, then store.Put(ctx, key, body)
//	}
//
// # Shared Backend
//
// RedisStore implements the same contract on top of Redis so several proxy
// instances can share one cache. Freshness is still decided from StoredAt
// on read; Redis never expires the keys on its own.
//
//	store := cache.NewRedisStore(redis.NewClient(&redis.Options{Addr: addr}), cache.Options{})
//
// # Metrics
//
//   - manga_cache_hits_total{backend} - Fresh hits
//   - manga_cache_misses_total{reason} - Misses ("absent" or "stale")
//   - manga_cache_entries{backend} - Stored entries (memory backend)
//   - manga_cache_errors_total{operation} - Backend errors
//
// The store has no capacity bound. The key space is operation × a small
// parameter set, so growth is expected to stay small; watch
// manga_cache_entries if that assumption changes.
package cache
