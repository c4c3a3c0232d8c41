// Package metrics exposes the Prometheus registry and the HTTP surface
// metrics. Component metrics (upstream, cache, resolver, health) are
// registered through promauto in their own packages.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Inbound HTTP metrics, labelled by the matched route pattern so that ids in
// paths do not explode cardinality.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "manga_http_requests_total",
		Help: "Inbound HTTP requests by route, method and status",
	}, []string{"route", "method", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "manga_http_request_duration_seconds",
		Help:    "Inbound HTTP request duration in seconds by route",
		Buckets: []float64{0.005, 0.05, 0.1, 0.5, 1, 2, 5, 15, 30},
	}, []string{"route"})
)

// ObserveRequest records one served request.
func ObserveRequest(route, method string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// Handler serves the default gatherer in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// HTTP Metrics (pkg/metrics):
//   - manga_http_requests_total{route, method, status} (Counter)
//   - manga_http_request_duration_seconds{route} (Histogram)
//
// Upstream Metrics (pkg/upstream):
//   - manga_upstream_requests_total{outcome} (Counter): success, timeout, connection_error, http_error, unknown
//   - manga_upstream_request_duration_seconds{outcome} (Histogram)
//
// Fallback Metrics (pkg/resolver):
//   - manga_fallback_attempts_total{operation, step, outcome} (Counter)
//   - manga_fallback_exhausted_total{operation} (Counter)
//
// Cache Metrics (pkg/cache):
//   - manga_cache_hits_total{backend} (Counter)
//   - manga_cache_misses_total{reason} (Counter): absent, stale
//   - manga_cache_entries{backend} (Gauge): entries held by the memory store
//   - manga_cache_errors_total{operation} (Counter)
//
// Health Metrics (pkg/health):
//   - manga_upstream_up (Gauge)
//   - manga_upstream_probes_total{status} (Counter)
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(manga_cache_hits_total[5m])) /
//   (sum(rate(manga_cache_hits_total[5m])) + sum(rate(manga_cache_misses_total[5m])))
//
//   # Share of detail requests served by the legacy endpoint
//   rate(manga_fallback_attempts_total{operation="manga_detail",step="1",outcome="accepted"}[5m])
//
//   # P95 Upstream Latency
//   histogram_quantile(0.95, rate(manga_upstream_request_duration_seconds_bucket[5m]))
