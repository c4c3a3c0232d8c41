// Package resolver runs declarative fallback chains against the upstream API.
//
// A chain is an ordered list of endpoint templates, each with an acceptance
// predicate. The resolver tries the steps in order and returns the first
// acceptable result. When every step fails it returns the result of the last
// step, so the caller always gets something to serialize.
package resolver

//go:generate mockgen -source=resolver.go -destination=mock_fetcher.go -package=resolver

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sternrassler/manga-proxy/pkg/normalize"
	"github.com/Sternrassler/manga-proxy/pkg/upstream"
)

// Prometheus metrics for chain resolution.
var (
	fallbackAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "manga_fallback_attempts_total",
		Help: "Chain steps attempted by operation, step index and outcome",
	}, []string{"operation", "step", "outcome"})

	fallbackExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "manga_fallback_exhausted_total",
		Help: "Chains where no step produced an acceptable result",
	}, []string{"operation"})
)

var tracer = otel.Tracer("github.com/Sternrassler/manga-proxy/pkg/resolver")

// Fetcher performs a single upstream GET. *upstream.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, path string, params url.Values) upstream.Result
}

// Accept decides whether a well-formed, non-error payload is good enough to
// stop the chain.
type Accept func(payload any) bool

// AnyPayload accepts every payload, including empty lists.
func AnyPayload(any) bool { return true }

// RequireData accepts payloads that carry a body (see upstream.HasData).
func RequireData(payload any) bool { return upstream.HasData(payload) }

// Step is one endpoint template of a chain. Path may contain {name}
// placeholders that are filled from the normalized path parameters.
type Step struct {
	Path   string
	Accept Accept
	// WithQuery forwards the normalized query parameters to this step.
	WithQuery bool
}

// Expand renders the step's path for p.
func (s Step) Expand(p normalize.Params) string {
	path := s.Path
	for name, value := range p.Path {
		path = strings.ReplaceAll(path, "{"+name+"}", url.PathEscape(value))
	}
	return path
}

// Chain is the ordered fallback list of one operation.
type Chain struct {
	Operation normalize.Operation
	Steps     []Step
	// Transform, when set, post-processes the accepted payload.
	Transform func(payload any) any
}

// Resolver executes chains with a Fetcher.
type Resolver struct {
	fetcher Fetcher
	logger  zerolog.Logger
}

// New creates a resolver backed by fetcher.
func New(fetcher Fetcher) *Resolver {
	if fetcher == nil {
		panic("resolver: fetcher cannot be nil")
	}
	return &Resolver{
		fetcher: fetcher,
		logger:  log.With().Str("component", "resolver").Logger(),
	}
}

// Resolve tries chain's steps in order. A step fails when the transport
// failed, the payload is a business error, or the step's predicate rejects
// it. The first acceptable result wins; otherwise the last result is
// returned unchanged.
func (r *Resolver) Resolve(ctx context.Context, chain Chain, p normalize.Params) upstream.Result {
	op := string(chain.Operation)
	ctx, span := tracer.Start(ctx, "resolver.resolve",
		trace.WithAttributes(
			attribute.String("resolver.operation", op),
			attribute.Int("resolver.steps", len(chain.Steps)),
		),
	)
	defer span.End()

	if len(chain.Steps) == 0 {
		return upstream.Failed(upstream.KindUnknown, 0, "no upstream route for "+op)
	}

	var last upstream.Result
	for i, step := range chain.Steps {
		var params url.Values
		if step.WithQuery {
			params = p.Values()
		}

		path := step.Expand(p)
		last = r.fetcher.Fetch(ctx, path, params)

		outcome := classify(step, last)
		fallbackAttemptsTotal.WithLabelValues(op, strconv.Itoa(i), outcome).Inc()

		if outcome == "accepted" {
			r.logger.Debug().
				Str("operation", op).
				Int("step", i).
				Str("path", path).
				Msg("Chain step accepted")

			span.SetAttributes(attribute.Int("resolver.step", i))
			if chain.Transform != nil {
				last.Payload = chain.Transform(last.Payload)
			}
			return last
		}

		r.logger.Debug().
			Str("operation", op).
			Int("step", i).
			Str("path", path).
			Str("outcome", outcome).
			Msg("Chain step rejected, trying next")
	}

	fallbackExhaustedTotal.WithLabelValues(op).Inc()
	span.SetStatus(codes.Error, "chain exhausted")
	r.logger.Warn().
		Str("operation", op).
		Int("steps", len(chain.Steps)).
		Str("last_outcome", last.Outcome()).
		Msg("Fallback chain exhausted")

	return last
}

// classify returns "accepted" or the reason the step was rejected.
func classify(step Step, result upstream.Result) string {
	if !result.OK() {
		return result.Outcome()
	}
	if upstream.IsBusinessError(result.Payload) {
		return "business_error"
	}
	accept := step.Accept
	if accept == nil {
		accept = AnyPayload
	}
	if !accept(result.Payload) {
		return "empty"
	}
	return "accepted"
}
