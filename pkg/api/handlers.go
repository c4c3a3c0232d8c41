package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"github.com/Sternrassler/manga-proxy/pkg/cache"
	"github.com/Sternrassler/manga-proxy/pkg/normalize"
	"github.com/Sternrassler/manga-proxy/pkg/resolver"
)

// pingEndpoints is advertised by /api/ping.
var pingEndpoints = []string{
	"/api/",
	"/api/search?q=solo",
	"/api/v1/manga/list",
	"/api/v1/manga/detail/[ID]",
	"/api/v1/chapter/[ID]/list",
	"/api/v1/chapter/detail/[ID]",
}

// homeSection is one listing embedded in the home payload.
type homeSection struct {
	name     string
	kind     string
	pageSize string
}

var homeSections = []homeSection{
	{name: "new", kind: "project", pageSize: "30"},
	{name: "top", kind: "project", pageSize: "24"},
	{name: "recommend", kind: "mirror", pageSize: "24"},
}

func (s *Server) handleMangaList(c echo.Context) error {
	return s.serve(c, normalize.OpMangaList)
}

func (s *Server) handleMangaDetail(c echo.Context) error {
	return s.serve(c, normalize.OpMangaDetail)
}

func (s *Server) handleChapterList(c echo.Context) error {
	return s.serve(c, normalize.OpChapterList)
}

func (s *Server) handleChapterDetail(c echo.Context) error {
	return s.serve(c, normalize.OpChapterDetail)
}

func (s *Server) handleSearch(c echo.Context) error {
	return s.serve(c, normalize.OpSearch)
}

func (s *Server) handleGenres(c echo.Context) error {
	return s.serve(c, normalize.OpGenres)
}

// serve runs the generic flow for operations backed by a single chain.
func (s *Server) serve(c echo.Context, op normalize.Operation) error {
	p := normalize.Normalize(op, c.QueryParams(), pathParams(c))
	if err := p.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}

	chain, ok := resolver.ChainFor(op)
	if !ok {
		return fmt.Errorf("no chain declared for operation %q", op)
	}

	return s.cached(c, p.Key(), func(ctx context.Context) (any, error) {
		return s.resolver.Resolve(ctx, chain, p).Document(), nil
	})
}

// handleHome serves the new/top/recommend listings under one key.
func (s *Server) handleHome(c echo.Context) error {
	p := normalize.Normalize(normalize.OpHome, nil, nil)
	return s.cached(c, p.Key(), s.aggregateHome)
}

// aggregateHome runs the three listings concurrently. A failed listing is
// embedded as its failure document; it never fails the whole payload.
func (s *Server) aggregateHome(ctx context.Context) (any, error) {
	chain, ok := resolver.ChainFor(normalize.OpMangaList)
	if !ok {
		return nil, errors.New("no chain declared for manga_list")
	}

	base := normalize.Normalize(normalize.OpMangaList, nil, nil)
	docs := make([]any, len(homeSections))

	var g errgroup.Group
	for i, section := range homeSections {
		p := base.With("type", section.kind).With("page_size", section.pageSize)

		g.Go(func() error {
			docs[i] = s.resolver.Resolve(ctx, chain, p).Document()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	payload := make(map[string]any, len(homeSections)+1)
	for i, section := range homeSections {
		payload[section.name] = docs[i]
	}
	payload["timestamp"] = unixSeconds(s.now())

	return payload, nil
}

// cached answers from the store when a fresh entry exists, otherwise calls
// produce and stores its document, failures included. Store errors only
// cost a cache hit; they never fail the request.
func (s *Server) cached(c echo.Context, key cache.CacheKey, produce func(ctx context.Context) (any, error)) error {
	// A client hanging up must not abort an upstream call that will be cached.
	ctx := context.WithoutCancel(c.Request().Context())
	k := key.String()

	entry, err := s.store.Get(ctx, key)
	switch {
	case err == nil:
		s.logger.Debug().Str("key", k).Msg("Cache hit")
		c.Response().Header().Set(HeaderCache, "HIT")
		return c.JSONBlob(http.StatusOK, entry.Data)
	case errors.Is(err, cache.ErrCacheMiss):
		s.logger.Debug().Str("key", k).Msg("Cache miss")
	default:
		s.logger.Warn().Err(err).Str("key", k).Msg("Cache read failed, treating as miss")
	}

	doc, err := produce(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	if err := s.store.Put(ctx, key, body); err != nil {
		s.logger.Warn().Err(err).Str("key", k).Msg("Cache write failed")
	}

	c.Response().Header().Set(HeaderCache, "MISS")
	return c.JSONBlob(http.StatusOK, body)
}

func (s *Server) handleHealth(c echo.Context) error {
	state := s.health.Current(c.Request().Context())

	return c.JSON(http.StatusOK, map[string]any{
		"status":     "healthy",
		"service":    ServiceName,
		"timestamp":  unixSeconds(s.now()),
		"base_url":   s.baseURL,
		"api_status": state.APIStatus(),
	})
}

func (s *Server) handlePing(c echo.Context) error {
	state := s.health.Check(context.WithoutCancel(c.Request().Context()))

	return c.JSON(http.StatusOK, map[string]any{
		"status":     "OK",
		"api_status": state.APIStatus(),
		"base_url":   s.baseURL,
		"endpoints":  pingEndpoints,
	})
}

func pathParams(c echo.Context) map[string]string {
	names := c.ParamNames()
	if len(names) == 0 {
		return nil
	}
	values := c.ParamValues()
	params := make(map[string]string, len(names))
	for i, name := range names {
		if i < len(values) {
			params[name] = values[i]
		}
	}
	return params
}

// unixSeconds renders t as fractional Unix seconds.
func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
