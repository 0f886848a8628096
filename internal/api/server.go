// Package api serves the memory store over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/sync/singleflight"

	"github.com/Aman-CERP/agentmemory/internal/config"
	"github.com/Aman-CERP/agentmemory/internal/index"
	"github.com/Aman-CERP/agentmemory/internal/search"
	"github.com/Aman-CERP/agentmemory/internal/source"
	"github.com/Aman-CERP/agentmemory/internal/store"
	"github.com/Aman-CERP/agentmemory/internal/telemetry"
)

// Searcher runs similarity search.
type Searcher interface {
	Search(ctx context.Context, query, agentID string, topK int, f search.Filters) ([]search.Result, error)
}

// Indexer writes to the store.
type Indexer interface {
	Ingest(ctx context.Context, req index.IngestRequest) ([]string, error)
	IngestFile(ctx context.Context, req index.IngestFileRequest) ([]string, error)
	IncrementalIndex(ctx context.Context, sources []source.Descriptor, agentID string) (*index.Summary, error)
}

// Dependencies are injected into New.
type Dependencies struct {
	Store    store.Store
	Searcher Searcher
	Indexer  Indexer

	// Sources are indexed by POST /index/trigger.
	Sources []source.Descriptor
	// AgentID is used when a request names no agent.
	AgentID     string
	DefaultTopK int
	// Metrics is reported by GET /stats when set.
	Metrics *telemetry.QueryMetrics
	// CORSOrigins defaults to any origin.
	CORSOrigins []string
	// MCPHandler is mounted at /mcp when set.
	MCPHandler http.Handler
}

// Server is the HTTP API.
type Server struct {
	deps    Dependencies
	router  chi.Router
	trigger singleflight.Group
}

// New creates the server and its routes.
func New(deps Dependencies) (*Server, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if deps.Searcher == nil {
		return nil, fmt.Errorf("searcher is required")
	}
	if deps.Indexer == nil {
		return nil, fmt.Errorf("indexer is required")
	}
	if deps.AgentID == "" {
		deps.AgentID = config.DefaultAgentID
	}
	if deps.DefaultTopK <= 0 {
		deps.DefaultTopK = 5
	}
	if len(deps.CORSOrigins) == 0 {
		deps.CORSOrigins = []string{"*"}
	}

	s := &Server{deps: deps}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.deps.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/stats", s.handleStats)
	r.Post("/search", s.handleSearch)
	r.Post("/ingest", s.handleIngest)
	r.Post("/ingest-file", s.handleIngestFile)
	r.Delete("/chunks/{id}", s.handleDelete)
	r.Post("/index/trigger", s.handleTrigger)
	if s.deps.MCPHandler != nil {
		r.Mount("/mcp", s.deps.MCPHandler)
	}
	return r
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("api_listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	slog.Info("api_shutdown", slog.String("addr", addr))
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// requestLogger logs one line per request after it completes.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Debug("http_request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Int("bytes", ww.BytesWritten()),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	})
}
