// Package httpapi exposes the ingestion and query services over a JSON HTTP
// API with jsend-style envelopes.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"horse.fit/finwire/internal/globaltime"
	"horse.fit/finwire/internal/ingest"
	"horse.fit/finwire/internal/model"
	"horse.fit/finwire/internal/query"
	"horse.fit/finwire/internal/store"
	payloadschema "horse.fit/finwire/schema"
)

// Options configures the HTTP server.
type Options struct {
	ListenAddr      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	// AllowedOrigins for CORS. Empty means allow all.
	AllowedOrigins []string
}

// Server serves the REST API over the wired services.
type Server struct {
	ingest   *ingest.Service
	query    *query.Service
	store    store.Store
	batcher  ingest.Batcher
	feedURLs []string
	logger   zerolog.Logger
	opts     Options
}

// defaultLookupLimit bounds the per-symbol and per-sector news listings when
// the caller passes no limit.
const defaultLookupLimit = 20

// maxPayloadBytes caps a single article payload read from a request body.
const maxPayloadBytes = 1 << 20

func NewServer(
	ingestSvc *ingest.Service,
	querySvc *query.Service,
	st store.Store,
	batcher ingest.Batcher,
	feedURLs []string,
	logger zerolog.Logger,
	opts Options,
) *Server {
	if strings.TrimSpace(opts.ListenAddr) == "" {
		opts.ListenAddr = ":8080"
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 10 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 30 * time.Second
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	return &Server{
		ingest:   ingestSvc,
		query:    querySvc,
		store:    st,
		batcher:  batcher,
		feedURLs: feedURLs,
		logger:   logger.With().Str("component", "httpapi").Logger(),
		opts:     opts,
	}
}

// Start runs the server until ctx is cancelled, then shuts it down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := s.buildEcho()

	httpServer := &http.Server{
		Addr:         s.opts.ListenAddr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", s.opts.ListenAddr).Msg("finwire api started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("finwire api stopped")
	return nil
}

func (s *Server) buildEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.opts.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       3600,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Err(v.Error).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("remote_ip", v.RemoteIP).
					Str("request_id", v.RequestID).
					Msg("http request failed")
				return nil
			}

			s.logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.GET("/stats", s.handleStats)
	api.GET("/query", s.handleQuery)
	api.GET("/entities", s.handleEntities)
	api.POST("/news/ingest", s.handleIngestFeeds)
	api.POST("/news/process", s.handleProcessArticle)
	api.GET("/news/:article_id", s.handleGetArticle)
	api.GET("/stocks/:symbol/news", s.handleStockNews)
	api.GET("/sectors/:sector/news", s.handleSectorNews)

	return e
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		switch v := he.Message.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				message = v
			}
		default:
			if text := strings.TrimSpace(http.StatusText(status)); text != "" {
				message = text
			}
		}
	} else if err != nil {
		message = err.Error()
	}

	if status >= 500 {
		_ = internalError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message, nil)
}

func (s *Server) handleHealth(c echo.Context) error {
	return success(c, map[string]any{
		"service": "finwire",
		"time":    globaltime.UTC(),
	})
}

func (s *Server) handleStats(c echo.Context) error {
	stats, err := s.store.Stats(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("stats query failed")
		return internalError(c, "Failed to load stats")
	}
	return success(c, stats)
}

func (s *Server) handleQuery(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return failValidation(c, map[string]string{"q": "query text is required"})
	}
	topK, err := parsePositiveInt(c.QueryParam("top_k"), query.DefaultTopK)
	if err != nil {
		return failValidation(c, map[string]string{"top_k": err.Error()})
	}

	hits, err := s.query.Search(c.Request().Context(), q, topK)
	if err != nil {
		s.logger.Error().Err(err).Str("query", q).Msg("query failed")
		return internalError(c, "Query failed")
	}
	return success(c, map[string]any{
		"query":   q,
		"results": hits,
		"count":   len(hits),
	})
}

func (s *Server) handleEntities(c echo.Context) error {
	entities, err := s.store.ListEntities(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("entity listing failed")
		return internalError(c, "Failed to list entities")
	}
	return success(c, map[string]any{
		"entities": entities,
		"count":    len(entities),
	})
}

type ingestFeedsRequest struct {
	// FeedURLs overrides the configured feed list for this run.
	FeedURLs []string `json:"feed_urls"`
}

func (s *Server) handleIngestFeeds(c echo.Context) error {
	var req ingestFeedsRequest
	if err := c.Bind(&req); err != nil {
		return failValidation(c, map[string]string{"body": "malformed JSON body"})
	}

	feedURLs := req.FeedURLs
	if len(feedURLs) == 0 {
		feedURLs = s.feedURLs
	}
	if len(feedURLs) == 0 {
		return fail(c, http.StatusBadRequest, "No feeds configured", nil)
	}
	if s.batcher == nil {
		return internalError(c, "Feed fetching is not enabled")
	}

	ctx := c.Request().Context()
	articles, err := s.batcher.FetchAll(ctx, feedURLs)
	if err != nil {
		s.logger.Error().Err(err).Msg("feed fetch failed")
		return internalError(c, "Feed fetch failed")
	}

	result, err := s.ingest.IngestArticles(ctx, articles)
	if err != nil {
		s.logger.Error().Err(err).Msg("ingest run failed")
		return internalError(c, "Ingest failed")
	}
	return successWithStatus(c, http.StatusAccepted, result)
}

func (s *Server) handleProcessArticle(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxPayloadBytes))
	if err != nil {
		return fail(c, http.StatusBadRequest, "Failed to read request body", nil)
	}

	raw, err := payloadschema.ValidateNewsArticlePayload(body)
	if err != nil {
		return failValidation(c, map[string]string{"article": err.Error()})
	}

	result, err := s.ingest.IngestArticles(c.Request().Context(), []model.Article{raw.ToArticle()})
	if err != nil {
		s.logger.Error().Err(err).Msg("article processing failed")
		return internalError(c, "Processing failed")
	}
	return successWithStatus(c, http.StatusCreated, result)
}

func (s *Server) handleGetArticle(c echo.Context) error {
	id := c.Param("article_id")
	article, err := s.store.GetArticle(c.Request().Context(), id)
	if err != nil {
		s.logger.Error().Err(err).Str("article_id", id).Msg("article lookup failed")
		return internalError(c, "Article lookup failed")
	}
	if article == nil {
		return failNotFound(c, fmt.Sprintf("Article %q not found", id))
	}
	return success(c, article)
}

func (s *Server) handleStockNews(c echo.Context) error {
	symbol := c.Param("symbol")
	limit, err := parsePositiveInt(c.QueryParam("top_k"), defaultLookupLimit)
	if err != nil {
		return failValidation(c, map[string]string{"top_k": err.Error()})
	}

	articles, err := s.store.BySymbol(c.Request().Context(), symbol, limit)
	if err != nil {
		s.logger.Error().Err(err).Str("symbol", symbol).Msg("symbol news lookup failed")
		return internalError(c, "Stock news lookup failed")
	}
	return success(c, map[string]any{
		"symbol":   symbol,
		"articles": articles,
		"count":    len(articles),
	})
}

func (s *Server) handleSectorNews(c echo.Context) error {
	sector := c.Param("sector")
	limit, err := parsePositiveInt(c.QueryParam("top_k"), defaultLookupLimit)
	if err != nil {
		return failValidation(c, map[string]string{"top_k": err.Error()})
	}

	articles, err := s.store.BySector(c.Request().Context(), sector, limit)
	if err != nil {
		s.logger.Error().Err(err).Str("sector", sector).Msg("sector news lookup failed")
		return internalError(c, "Sector news lookup failed")
	}
	return success(c, map[string]any{
		"sector":   sector,
		"articles": articles,
		"count":    len(articles),
	})
}

func parsePositiveInt(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return 0, fmt.Errorf("must be a positive integer")
	}
	return value, nil
}
