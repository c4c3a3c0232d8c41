package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/manga-proxy/pkg/upstream"
)

// Prometheus metrics for connectivity probes.
var (
	upstreamUp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "manga_upstream_up",
		Help: "1 if the last connectivity probe reached the upstream, 0 otherwise",
	})

	probesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "manga_upstream_probes_total",
		Help: "Total connectivity probes by status",
	}, []string{"status"})
)

// Prober checks upstream connectivity. *upstream.Client implements it.
type Prober interface {
	Probe(ctx context.Context) upstream.ProbeStatus
}

// Tracker runs probes and remembers the last outcome.
type Tracker struct {
	prober Prober
	redis  *redis.Client
	logger zerolog.Logger
	now    func() time.Time
	maxAge time.Duration

	mu    sync.RWMutex
	state State
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithRedis shares the last probe state through Redis.
func WithRedis(client *redis.Client) Option {
	return func(t *Tracker) { t.redis = client }
}

// WithMaxAge makes Current report an unknown status once the last probe
// is older than maxAge. Zero keeps probe results forever.
func WithMaxAge(maxAge time.Duration) Option {
	return func(t *Tracker) { t.maxAge = maxAge }
}

// WithClock overrides the time source (for testing).
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// NewTracker creates a new connectivity tracker.
func NewTracker(prober Prober, logger zerolog.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		prober: prober,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Check probes the upstream, records the outcome and returns it.
func (t *Tracker) Check(ctx context.Context) State {
	status := t.prober.Probe(ctx)
	state := State{Status: status, CheckedAt: t.now()}

	t.mu.Lock()
	t.state = state
	t.mu.Unlock()

	probesTotal.WithLabelValues(string(status)).Inc()
	if state.IsHealthy() {
		upstreamUp.Set(1)
	} else {
		upstreamUp.Set(0)
	}

	if t.redis != nil {
		if err := t.store(ctx, state); err != nil {
			t.logger.Warn().Err(err).Msg("Failed to share probe state")
		}
	}

	logEvent := t.logger.Debug()
	if !state.IsHealthy() {
		logEvent = t.logger.Warn()
	}
	logEvent.Str("api_status", string(status)).Msg("Upstream probe completed")

	return state
}

// Current returns the most recent probe state. With Redis configured, the
// shared state wins when it is newer than the local one. A state older than
// the configured max age is reported as never probed.
func (t *Tracker) Current(ctx context.Context) State {
	state := t.latest(ctx)
	if t.maxAge > 0 && state.IsStale(t.now(), t.maxAge) {
		return State{}
	}
	return state
}

func (t *Tracker) latest(ctx context.Context) State {
	t.mu.RLock()
	local := t.state
	t.mu.RUnlock()

	if t.redis == nil {
		return local
	}

	shared, err := t.load(ctx)
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			t.logger.Warn().Err(err).Msg("Failed to read shared probe state")
		}
		return local
	}

	if shared.CheckedAt.After(local.CheckedAt) {
		return shared
	}
	return local
}

func (t *Tracker) store(ctx context.Context, state State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal probe state: %w", err)
	}
	if err := t.redis.Set(ctx, RedisKeyState, data, 0).Err(); err != nil {
		return fmt.Errorf("store probe state in redis: %w", err)
	}
	return nil
}

func (t *Tracker) load(ctx context.Context) (State, error) {
	data, err := t.redis.Get(ctx, RedisKeyState).Bytes()
	if err != nil {
		return State{}, err
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("parse probe state: %w", err)
	}
	return state, nil
}
