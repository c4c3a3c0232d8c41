// Package api is the public HTTP surface of the proxy: routing, CORS,
// static assets, JSON errors and the cached route handlers.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/manga-proxy/pkg/cache"
	"github.com/Sternrassler/manga-proxy/pkg/health"
	"github.com/Sternrassler/manga-proxy/pkg/metrics"
	"github.com/Sternrassler/manga-proxy/pkg/normalize"
	"github.com/Sternrassler/manga-proxy/pkg/resolver"
	"github.com/Sternrassler/manga-proxy/pkg/upstream"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "Shinigami Manga API"

// HeaderCache tells clients whether the body came from the cache.
const HeaderCache = "X-Cache"

// Resolver runs a fallback chain. *resolver.Resolver implements it.
type Resolver interface {
	Resolve(ctx context.Context, chain resolver.Chain, p normalize.Params) upstream.Result
}

// Options wires the server's collaborators.
type Options struct {
	Store    cache.Store
	Resolver Resolver
	Health   *health.Tracker

	// BaseURL is the upstream host shown by health and ping.
	BaseURL string

	// StaticDir holds the frontend; empty disables static serving.
	StaticDir string

	Logger zerolog.Logger

	// Now overrides the clock used for payload timestamps (for testing).
	Now func() time.Time
}

// Server serves the proxy API.
type Server struct {
	echo     *echo.Echo
	store    cache.Store
	resolver Resolver
	health   *health.Tracker
	baseURL  string
	logger   zerolog.Logger
	now      func() time.Time
}

// New builds the router and middleware stack.
func New(opts Options) (*Server, error) {
	if opts.Store == nil {
		return nil, errors.New("cache store is required")
	}
	if opts.Resolver == nil {
		return nil, errors.New("resolver is required")
	}
	if opts.Health == nil {
		return nil, errors.New("health tracker is required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Server{
		echo:     echo.New(),
		store:    opts.Store,
		resolver: opts.Resolver,
		health:   opts.Health,
		baseURL:  opts.BaseURL,
		logger:   opts.Logger.With().Str("component", "api").Logger(),
		now:      opts.Now,
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(s.requestLogger())
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			s.logger.Error().
				Err(err).
				Str("uri", c.Request().RequestURI).
				Bytes("stack", stack).
				Msg("Recovered from panic")
			return err
		},
	}))
	e.Use(middleware.CORS())

	if opts.StaticDir != "" {
		e.Use(middleware.StaticWithConfig(middleware.StaticConfig{
			Root:  opts.StaticDir,
			HTML5: true,
			Skipper: func(c echo.Context) bool {
				p := c.Request().URL.Path
				return p == "/api" || strings.HasPrefix(p, "/api/") || p == "/metrics"
			},
		}))
	}

	s.routes()
	return s, nil
}

func (s *Server) routes() {
	e := s.echo

	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	api := e.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/ping", s.handlePing)

	api.GET("", s.handleHome)
	api.GET("/", s.handleHome)
	api.GET("/home", s.handleHome)

	api.GET("/v1/manga/list", s.handleMangaList)
	api.GET("/v1/manga/detail/:id", s.handleMangaDetail)
	api.GET("/v1/chapter/:id/list", s.handleChapterList)
	api.GET("/v1/chapter/detail/:id", s.handleChapterDetail)
	api.GET("/search", s.handleSearch)

	// Aliases kept for older frontends.
	api.GET("/manhwa-detail/:id", s.handleMangaDetail)
	api.GET("/chapter/:id", s.handleChapterDetail)

	legacy := api.Group("/api")
	legacy.GET("/home", s.handleHome)
	legacy.GET("/manhwa-detail/:id", s.handleMangaDetail)
	legacy.GET("/chapter/:id", s.handleChapterDetail)
	legacy.GET("/genres", s.handleGenres)
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr. It returns http.ErrServerClosed after Shutdown.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			metrics.ObserveRequest(c.Path(), v.Method, v.Status, v.Latency)

			event := s.logger.Info()
			if v.Status >= http.StatusInternalServerError {
				event = s.logger.Error().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Str("cache", c.Response().Header().Get(HeaderCache)).
				Msg("Request served")
			return nil
		},
	})
}
