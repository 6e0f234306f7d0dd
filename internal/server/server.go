// Package server exposes the scoring engine and cache administration over
// HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sells-group/locality/internal/aggregate"
	"github.com/sells-group/locality/internal/monitoring"
	"github.com/sells-group/locality/pkg/ibge"
)

// Config tunes the HTTP surface.
type Config struct {
	Addr                string
	CORSOrigins         []string
	DefaultRadiusMeters float64
}

// Server routes requests to the orchestrator. Collaborators are injected;
// metrics may be nil.
type Server struct {
	httpServer *http.Server
	router     chi.Router

	orch          *aggregate.Orchestrator
	stats         ibge.Client
	metrics       *monitoring.Metrics
	defaultRadius float64
}

// New builds the router and wraps it in an http.Server. Write timeout must
// outlast the slowest provider fetch, so it is generous.
func New(cfg Config, orch *aggregate.Orchestrator, stats ibge.Client, metrics *monitoring.Metrics) *Server {
	s := &Server{
		orch:          orch,
		stats:         stats,
		metrics:       metrics,
		defaultRadius: cfg.DefaultRadiusMeters,
	}
	if s.defaultRadius <= 0 {
		s.defaultRadius = 1000
	}

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.instrument)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/score", s.handleScore)
		r.Get("/municipalities", s.handleMunicipalitySearch)
		r.Get("/municipalities/{id}", s.handleMunicipality)
		r.Get("/municipalities/{id}/record", s.handleRecord)
		r.Get("/cache/stats", s.handleCacheStats)
		r.Delete("/cache/entities/{id}", s.handleCacheClear)
		r.Post("/cache/warmup", s.handleWarmUp)
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	s.router = r
	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	zap.L().Info("server: listening", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown drains connections within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the router, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
