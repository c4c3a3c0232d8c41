// Package config loads the proxy configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Sternrassler/manga-proxy/pkg/cache"
	"github.com/Sternrassler/manga-proxy/pkg/logging"
	"github.com/Sternrassler/manga-proxy/pkg/upstream"
)

// Cache backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Trace exporters.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
)

// Config is the complete process configuration.
type Config struct {
	Port int `validate:"min=1,max=65535"`

	Upstream upstream.Config

	CacheTTL     time.Duration `validate:"gt=0"`
	CacheBackend string        `validate:"oneof=memory redis"`
	RedisURL     string        `validate:"required_if=CacheBackend redis"`

	StaticDir string

	LogLevel  logging.LogLevel
	LogPretty bool

	// HealthMaxAge is how long a probe result is reported before it
	// reverts to unknown.
	HealthMaxAge time.Duration `validate:"gt=0"`

	TraceExporter   string        `validate:"oneof=none stdout"`
	ShutdownTimeout time.Duration `validate:"gt=0"`
}

// upstreamRules validates the upstream section, whose struct carries no tags.
type upstreamRules struct {
	BaseURL      string        `validate:"required,url"`
	UserAgent    string        `validate:"required"`
	Timeout      time.Duration `validate:"gt=0"`
	ProbeTimeout time.Duration `validate:"gt=0"`
}

var validate = validator.New()

// Default returns the configuration used when no variable is set.
func Default() Config {
	return Config{
		Port:            8000,
		Upstream:        upstream.DefaultConfig(),
		CacheTTL:        cache.DefaultTTL,
		CacheBackend:    BackendMemory,
		RedisURL:        "localhost:6379",
		StaticDir:       "public",
		LogLevel:        logging.LevelInfo,
		HealthMaxAge:    10 * time.Minute,
		TraceExporter:   ExporterNone,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load reads the environment on top of Default and validates the result.
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	cfg := Default()
	env := envReader{getenv: getenv}

	cfg.Port = env.getInt("PORT", cfg.Port)
	cfg.Upstream.BaseURL = env.getString("UPSTREAM_BASE_URL", cfg.Upstream.BaseURL)
	cfg.Upstream.Referer = env.getString("UPSTREAM_REFERER", cfg.Upstream.Referer)
	cfg.Upstream.Origin = env.getString("UPSTREAM_ORIGIN", cfg.Upstream.Origin)
	cfg.Upstream.UserAgent = env.getString("USER_AGENT", cfg.Upstream.UserAgent)
	cfg.Upstream.Timeout = env.getDuration("FETCH_TIMEOUT", cfg.Upstream.Timeout)
	cfg.Upstream.ProbeTimeout = env.getDuration("PROBE_TIMEOUT", cfg.Upstream.ProbeTimeout)
	cfg.CacheTTL = env.getDuration("CACHE_TTL", cfg.CacheTTL)
	cfg.CacheBackend = strings.ToLower(env.getString("CACHE_BACKEND", cfg.CacheBackend))
	cfg.RedisURL = env.getString("REDIS_URL", cfg.RedisURL)
	cfg.StaticDir = env.getString("STATIC_DIR", cfg.StaticDir)
	cfg.LogPretty = env.getBool("LOG_PRETTY", cfg.LogPretty)
	cfg.HealthMaxAge = env.getDuration("HEALTH_MAX_AGE", cfg.HealthMaxAge)
	cfg.TraceExporter = strings.ToLower(env.getString("TRACE_EXPORTER", cfg.TraceExporter))
	cfg.ShutdownTimeout = env.getDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)

	if raw := env.getString("LOG_LEVEL", ""); raw != "" {
		level, err := logging.ParseLevel(raw)
		if err != nil {
			env.errs = append(env.errs, fmt.Errorf("LOG_LEVEL: %w", err))
		}
		cfg.LogLevel = level
	}

	if len(env.errs) > 0 {
		return Config{}, fmt.Errorf("invalid environment: %w", env.errs[0])
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every field against its constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	rules := upstreamRules{
		BaseURL:      c.Upstream.BaseURL,
		UserAgent:    c.Upstream.UserAgent,
		Timeout:      c.Upstream.Timeout,
		ProbeTimeout: c.Upstream.ProbeTimeout,
	}
	if err := validate.Struct(rules); err != nil {
		return fmt.Errorf("invalid upstream config: %w", err)
	}
	return nil
}

// Addr is the listen address.
func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// envReader collects parse errors so Load can report the first one.
type envReader struct {
	getenv func(string) string
	errs   []error
}

func (e *envReader) getString(key, defaultValue string) string {
	if value := strings.TrimSpace(e.getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func (e *envReader) getInt(key string, defaultValue int) int {
	raw := e.getString(key, "")
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not an integer", key, raw))
		return defaultValue
	}
	return n
}

// getDuration accepts Go durations ("15s") and plain seconds ("300").
func (e *envReader) getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := e.getString(key, "")
	if raw == "" {
		return defaultValue
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not a duration", key, raw))
		return defaultValue
	}
	return d
}

func (e *envReader) getBool(key string, defaultValue bool) bool {
	raw := e.getString(key, "")
	if raw == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not a boolean", key, raw))
		return defaultValue
	}
	return b
}
