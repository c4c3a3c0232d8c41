package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/manga-proxy/pkg/api"
	"github.com/Sternrassler/manga-proxy/pkg/cache"
	"github.com/Sternrassler/manga-proxy/pkg/config"
	"github.com/Sternrassler/manga-proxy/pkg/health"
	"github.com/Sternrassler/manga-proxy/pkg/logging"
	"github.com/Sternrassler/manga-proxy/pkg/resolver"
	"github.com/Sternrassler/manga-proxy/pkg/tracing"
	"github.com/Sternrassler/manga-proxy/pkg/upstream"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "manga-proxy: %v\n", err)
		os.Exit(1)
	}

	logging.Setup(logging.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
		Output: os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

// app holds everything run has to tear down.
type app struct {
	server          *api.Server
	store           cache.Store
	shutdownTracing tracing.ShutdownFunc
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	shutdownTracing, err := tracing.Setup(ctx, cfg.TraceExporter, logging.ServiceName)
	if err != nil {
		return nil, fmt.Errorf("setup tracing: %w", err)
	}

	client, err := upstream.New(cfg.Upstream)
	if err != nil {
		_ = shutdownTracing(ctx)
		return nil, fmt.Errorf("create upstream client: %w", err)
	}

	store, redisClient, err := newStore(ctx, cfg)
	if err != nil {
		_ = shutdownTracing(ctx)
		return nil, err
	}

	trackerOpts := []health.Option{health.WithMaxAge(cfg.HealthMaxAge)}
	if redisClient != nil {
		trackerOpts = append(trackerOpts, health.WithRedis(redisClient))
	}

	server, err := api.New(api.Options{
		Store:     store,
		Resolver:  resolver.New(client),
		Health:    health.NewTracker(client, logging.NewLogger("health"), trackerOpts...),
		BaseURL:   client.BaseURL(),
		StaticDir: cfg.StaticDir,
		Logger:    log.Logger,
	})
	if err != nil {
		_ = store.Close()
		_ = shutdownTracing(ctx)
		return nil, err
	}

	return &app{server: server, store: store, shutdownTracing: shutdownTracing}, nil
}

// newStore selects the cache backend. The Redis client is returned as well
// so the health tracker can share it.
func newStore(ctx context.Context, cfg config.Config) (cache.Store, *redis.Client, error) {
	opts := cache.Options{TTL: cfg.CacheTTL}

	switch cfg.CacheBackend {
	case config.BackendRedis:
		redisOpts, err := redisOptions(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		redisClient := redis.NewClient(redisOpts)
		store := cache.NewRedisStore(redisClient, opts)
		if err := store.Ping(ctx); err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", redisOpts.Addr, err)
		}
		log.Info().Str("addr", redisOpts.Addr).Msg("Connected to Redis")
		return store, redisClient, nil
	default:
		return cache.NewMemoryStore(opts), nil, nil
	}
}

// redisOptions accepts a redis:// URL or a bare host:port.
func redisOptions(raw string) (*redis.Options, error) {
	if strings.Contains(raw, "://") {
		opts, err := redis.ParseURL(raw)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		return opts, nil
	}
	return &redis.Options{Addr: raw}, nil
}

// close releases the store and flushes pending spans.
func (a *app) close(ctx context.Context) error {
	return errors.Join(a.store.Close(), a.shutdownTracing(ctx))
}

// run serves until ctx is cancelled or the listener fails, then shuts down
// within cfg.ShutdownTimeout.
func run(ctx context.Context, cfg config.Config) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", cfg.Addr()).
			Str("upstream", cfg.Upstream.BaseURL).
			Str("cache_backend", cfg.CacheBackend).
			Dur("cache_ttl", cfg.CacheTTL).
			Msg("Starting manga proxy")
		errCh <- a.server.Start(cfg.Addr())
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = a.close(context.Background())
			return fmt.Errorf("listen on %s: %w", cfg.Addr(), err)
		}
	case <-ctx.Done():
		log.Info().Msg("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	return errors.Join(a.server.Shutdown(shutdownCtx), a.close(shutdownCtx))
}
