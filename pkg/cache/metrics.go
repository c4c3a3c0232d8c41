package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks fresh cache hits by backend
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "manga_cache_hits_total",
			Help: "Total number of fresh cache hits",
		},
		[]string{"backend"}, // "memory", "redis"
	)

	// CacheMisses tracks cache misses by reason
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "manga_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"reason"}, // "absent", "stale"
	)

	// CacheEntries tracks the number of stored entries, stale ones included
	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "manga_cache_entries",
			Help: "Number of entries held by the cache store",
		},
		[]string{"backend"},
	)

	// CacheErrors tracks cache backend errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "manga_cache_errors_total",
			Help: "Total number of cache backend errors",
		},
		[]string{"operation"}, // "get", "put"
	)
)
