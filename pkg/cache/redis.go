package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const backendRedis = "redis"

// RedisStore keeps entries in Redis so several proxy instances can share
// one cache. Keys are written without a Redis expiry; freshness is decided
// on read from StoredAt, the same way MemoryStore does it.
type RedisStore struct {
	redis *redis.Client
	opts  Options
}

// NewRedisStore creates a store backed by redisClient. The store owns the
// client and closes it in Close.
func NewRedisStore(redisClient *redis.Client, opts Options) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{
		redis: redisClient,
		opts:  opts.withDefaults(),
	}
}

// Get retrieves a fresh cache entry by key.
// Returns ErrCacheMiss if the key doesn't exist or the entry is stale.
func (s *RedisStore) Get(ctx context.Context, key CacheKey) (*CacheEntry, error) {
	cacheKey := key.String()

	data, err := s.redis.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			CacheMisses.WithLabelValues("absent").Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	if !entry.IsFresh(s.opts.Now(), s.opts.TTL) {
		CacheMisses.WithLabelValues("stale").Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues(backendRedis).Inc()
	return &entry, nil
}

// Put overwrites the entry for key.
func (s *RedisStore) Put(ctx context.Context, key CacheKey, data []byte) error {
	cacheKey := key.String()

	entry := CacheEntry{
		Key:      cacheKey,
		Data:     data,
		StoredAt: s.opts.Now(),
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("put").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := s.redis.Set(ctx, cacheKey, payload, 0).Err(); err != nil {
		CacheErrors.WithLabelValues("put").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}

// Close closes the underlying Redis client.
func (s *RedisStore) Close() error {
	return s.redis.Close()
}

var _ Store = (*RedisStore)(nil)
