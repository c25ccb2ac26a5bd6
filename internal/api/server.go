// Package api provides the HTTP server for the chatbot: a minimal chat page,
// the ask/stats JSON API and health probes.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/docchat/docchat/internal/rag"
)

// Service answers questions and reports knowledge base stats.
// Implemented by rag.Service.
type Service interface {
	Ask(ctx context.Context, question string) (*rag.Answer, error)
	Stats(ctx context.Context) (*rag.Stats, error)
}

// Pinger checks backing-store connectivity for the readiness probe.
// Implemented by pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config contains server configuration.
type Config struct {
	Logger  *slog.Logger
	Service Service
	DB      Pinger

	// Addr is the listen address, e.g. "127.0.0.1:8080".
	Addr string

	// RequestsPerSecond limits /api/ask requests. <= 0 disables limiting.
	RequestsPerSecond float64
}

// shutdownTimeout bounds graceful drain on exit.
const shutdownTimeout = 10 * time.Second

// Server is the chatbot HTTP server.
type Server struct {
	mux     *http.ServeMux
	handler http.Handler
	logger  *slog.Logger
	service Service
	db      Pinger
	addr    string
}

// NewServer creates a Server with all routes configured.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Service == nil {
		return nil, errors.New("api: service is required")
	}
	if cfg.DB == nil {
		return nil, errors.New("api: db is required")
	}
	if cfg.Addr == "" {
		return nil, errors.New("api: listen address is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		mux:     http.NewServeMux(),
		logger:  logger,
		service: cfg.Service,
		db:      cfg.DB,
		addr:    cfg.Addr,
	}

	// Probes skip the middleware stack so orchestrator checks stay cheap
	// and unlogged.
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /ready", s.handleReady)

	api := http.NewServeMux()
	api.HandleFunc("GET /{$}", s.handleIndex)
	api.HandleFunc("POST /api/ask", s.handleAsk)
	api.HandleFunc("GET /api/stats", s.handleStats)

	chain := []func(http.Handler) http.Handler{
		RecoveryMiddleware(logger),
		RequestIDMiddleware(),
		LoggingMiddleware(logger),
	}
	if cfg.RequestsPerSecond > 0 {
		chain = append(chain, RateLimitMiddleware(cfg.RequestsPerSecond))
	}
	s.mux.Handle("/", wrap(api, chain...))

	s.handler = s.mux
	return s, nil
}

// Handler returns the root http.Handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("api: serving: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api: shutdown: %w", err)
	}
	return <-errCh
}

// wrap applies middlewares so the first listed runs outermost.
func wrap(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
