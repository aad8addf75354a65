// Package ingress provides the HTTP surface of the hearsay daemon. Session
// hooks POST events to it, operators read stats and toggle pause from it. It
// is a thin chi chassis: cross-cutting concerns (request IDs, panic recovery,
// logging) run as middleware before requests reach the handlers, and every
// handler talks to the queue only.
package ingress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"hearsay/internal/config"
	"hearsay/internal/queue"
)

// Server wires the router to its collaborators. All fields are set at
// construction and never mutated afterwards.
type Server struct {
	cfg      config.ServerConfig
	queue    *queue.Queue
	logger   *slog.Logger
	validate *validator.Validate

	router *chi.Mux
}

// NewServer builds the ingress server and mounts its routes. It fails fast on
// missing collaborators so a miswired daemon dies at startup, not on the first
// request.
func NewServer(cfg config.ServerConfig, q *queue.Queue, logger *slog.Logger) (*Server, error) {
	if q == nil {
		return nil, fmt.Errorf("queue must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	s := &Server{
		cfg:      cfg,
		queue:    q,
		logger:   logger,
		validate: validator.New(),
		router:   chi.NewRouter(),
	}
	s.mountRoutes()
	return s, nil
}

// mountRoutes registers middleware and routes. Recoverer is outermost so
// every panic in the chain is caught.
func (s *Server) mountRoutes() {
	s.router.Use(s.Recoverer)
	s.router.Use(RequestID)
	s.router.Use(RequestLogger(s.logger))

	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/v1", func(r chi.Router) {
		r.Post("/events", s.handleEvent)
		r.Get("/stats", s.handleStats)
		r.Post("/pause", s.handlePause)
		r.Post("/resume", s.handleResume)
		r.Post("/clear", s.handleClear)
	})
}

// Handler returns the http.Handler for the router. Exposed for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve runs the HTTP server until ctx is cancelled, then drains in-flight
// requests within the configured shutdown timeout.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("ingress listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ingress server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ingress shutdown: %w", err)
	}
	s.logger.Info("ingress stopped")
	return nil
}
