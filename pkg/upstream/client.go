// Package upstream provides the HTTP client for the manga content API:
// fixed base host, anti-block header bundle, hard timeouts and a uniform
// Result for every transport outcome.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Prometheus metrics for upstream calls.
var (
	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "manga_upstream_requests_total",
		Help: "Total upstream requests by outcome",
	}, []string{"outcome"})

	upstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "manga_upstream_request_duration_seconds",
		Help:    "Upstream request duration in seconds by outcome",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 15},
	}, []string{"outcome"})
)

var tracer = otel.Tracer("github.com/Sternrassler/manga-proxy/pkg/upstream")

// Default header values sent to the upstream.
const (
	DefaultBaseURL   = "https://api.shngm.io"
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	DefaultReferer   = "https://shinigami.asia/"
	DefaultOrigin    = "https://shinigami.asia"
)

// maxErrorBody bounds how much of a non-2xx body is drained.
const maxErrorBody = 1 << 20

// DefaultMaxBodyBytes caps a 2xx body; larger documents are rejected.
const DefaultMaxBodyBytes = 10 << 20

// Client is the upstream API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the upstream host, e.g. https://api.shngm.io
	BaseURL string

	// Header bundle
	UserAgent string
	Referer   string
	Origin    string

	// Timeout bounds a content fetch (connect + headers + body)
	Timeout time.Duration

	// ProbeTimeout bounds a connectivity probe
	ProbeTimeout time.Duration

	// MaxBodyBytes is the largest 2xx body accepted
	MaxBodyBytes int64
}

// DefaultConfig returns the production configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:      DefaultBaseURL,
		UserAgent:    DefaultUserAgent,
		Referer:      DefaultReferer,
		Origin:       DefaultOrigin,
		Timeout:      15 * time.Second,
		ProbeTimeout: 5 * time.Second,
		MaxBodyBytes: DefaultMaxBodyBytes,
	}
}

// New creates a new upstream client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}

	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be > 0 (got %s)", cfg.Timeout)
	}

	if cfg.ProbeTimeout <= 0 {
		return nil, fmt.Errorf("probe timeout must be > 0 (got %s)", cfg.ProbeTimeout)
	}

	if cfg.MaxBodyBytes <= 0 {
		return nil, fmt.Errorf("max body bytes must be > 0 (got %d)", cfg.MaxBodyBytes)
	}

	return &Client{
		// Per-call deadlines come from the context; the transport is shared.
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		config:     cfg,
		logger:     log.With().Str("component", "upstream").Logger(),
	}, nil
}

// Fetch performs a GET of path with params and classifies the outcome.
// It never retries; fallback policy belongs to the caller.
func (c *Client) Fetch(ctx context.Context, path string, params url.Values) Result {
	ctx, span := tracer.Start(ctx, "upstream.fetch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("upstream.path", path)),
	)
	defer span.End()

	startTime := time.Now()
	result := c.fetch(ctx, path, params)
	elapsed := time.Since(startTime)

	outcome := result.Outcome()
	upstreamRequestsTotal.WithLabelValues(outcome).Inc()
	upstreamRequestDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())

	span.SetAttributes(attribute.String("upstream.outcome", outcome))
	if !result.OK() {
		span.SetStatus(codes.Error, result.Failure.Message)
		c.logger.Warn().
			Str("path", path).
			Str("error_class", outcome).
			Int("status", result.Failure.StatusCode).
			Dur("duration", elapsed).
			Msg("Upstream request failed")
	} else {
		c.logger.Debug().
			Str("path", path).
			Dur("duration", elapsed).
			Msg("Upstream request succeeded")
	}

	return result
}

func (c *Client) fetch(ctx context.Context, path string, params url.Values) Result {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	target := c.URL(path, params)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Failed(KindUnknown, 0, fmt.Sprintf("create request: %v", err))
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return Failed(KindHTTP, resp.StatusCode,
			fmt.Sprintf("%d %s for url: %s", resp.StatusCode, http.StatusText(resp.StatusCode), target))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxBodyBytes+1))
	if err != nil {
		if isTimeout(err) {
			return Failed(KindTimeout, 0, "API request timeout")
		}
		return Failed(KindUnknown, 0, fmt.Sprintf("read response body: %v", err))
	}
	if int64(len(body)) > c.config.MaxBodyBytes {
		return Failed(KindUnknown, 0, fmt.Sprintf("response body exceeds %d bytes", c.config.MaxBodyBytes))
	}

	payload, err := decodeJSON(body)
	if err != nil {
		return Failed(KindUnknown, 0, fmt.Sprintf("decode response body: %v", err))
	}

	return Succeeded(payload)
}

// URL joins the base host with path (leading slashes stripped) and params.
func (c *Client) URL(path string, params url.Values) string {
	target := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	return target
}

// BaseURL returns the configured upstream host.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "id,en-US;q=0.9,en;q=0.8")
	if c.config.Referer != "" {
		req.Header.Set("Referer", c.config.Referer)
	}
	if c.config.Origin != "" {
		req.Header.Set("Origin", c.config.Origin)
	}
}

// classifyTransportError maps a failed Do into Timeout or ConnectionError.
func classifyTransportError(err error) Result {
	if isTimeout(err) {
		return Failed(KindTimeout, 0, "API request timeout")
	}
	return Failed(KindConnection, 0, fmt.Sprintf("Cannot connect to API: %v", err))
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// decodeJSON parses a body keeping numbers as json.Number so that large
// integer ids survive the round trip to the client unchanged.
func decodeJSON(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after JSON document")
	}
	return payload, nil
}
