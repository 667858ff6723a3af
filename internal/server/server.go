// Package server wires the web front end and its JSON API into one HTTP
// handler.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/me/patrimoine/internal/config"
	"github.com/me/patrimoine/internal/i18n"
	"github.com/me/patrimoine/internal/portal"
	"github.com/me/patrimoine/internal/store"
	"github.com/me/patrimoine/internal/ui"
	"github.com/me/patrimoine/pkg/catalogue"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Pinger probes the remote catalogue API.
type Pinger interface {
	Ping(ctx context.Context) (*catalogue.Health, error)
}

// Server is the patrimoine HTTP server.
type Server struct {
	router    chi.Router
	logger    *slog.Logger
	config    config.ServerConfig
	startTime time.Time
	store     store.Store
	registry  *portal.Registry
	api       Pinger
	ui        *ui.UI
}

// New creates a new Server with all routes registered.
func New(cfg config.ServerConfig, st store.Store, reg *portal.Registry, api Pinger, catalog *i18n.Catalog, logger *slog.Logger) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger.With("component", "server"),
		config:    cfg,
		startTime: time.Now(),
		store:     st,
		registry:  reg,
		api:       api,
	}
	s.ui = ui.New(reg, st, catalog, logger, ui.Config{Secure: cfg.SecureCookies})
	s.routes()
	return s
}

// StartJanitor runs the registry eviction loop in a background goroutine.
func (s *Server) StartJanitor(ctx context.Context) {
	go func() {
		if err := s.registry.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("registry janitor stopped", "error", err)
		}
	}()
}

// Close stops every controller and their pollers.
func (s *Server) Close() {
	s.registry.Close()
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))

	// UI routes (HTML)
	s.ui.RegisterRoutes(r)

	// API routes (JSON)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", s.handleDiscovery)
		r.Get("/health", s.handleHealth)
		r.Get("/pending", s.handlePending)
	})
}
