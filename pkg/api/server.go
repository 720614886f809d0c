package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/daycarealert/daycarealert-go/pkg/cache"
	"github.com/daycarealert/daycarealert-go/pkg/config"
	"github.com/daycarealert/daycarealert-go/pkg/logging"
	"github.com/daycarealert/daycarealert-go/pkg/pipeline"
	"github.com/daycarealert/daycarealert-go/pkg/storage"
)

// Server provides the HTTP API over facilities and their derived rows
type Server struct {
	store    storage.Store
	cache    *cache.Cache
	pipeline *pipeline.Service
	logger   *logging.Logger
	config   config.ServerConfig
	router   *mux.Router
	handler  http.Handler
	http     *http.Server
}

// NewServer creates an API server and registers its routes
func NewServer(cfg config.ServerConfig, store storage.Store, c *cache.Cache, p *pipeline.Service, logger *logging.Logger) *Server {
	s := &Server{
		store:    store,
		cache:    c,
		pipeline: p,
		logger:   logger,
		config:   cfg,
		router:   mux.NewRouter(),
	}

	s.registerRoutes()

	// middleware wraps the router so CORS preflights short-circuit before
	// route matching
	s.handler = http.Handler(s.router)
	if cfg.EnableCORS {
		s.handler = s.corsMiddleware(s.handler)
	}
	s.handler = s.loggingMiddleware(s.handler)
	s.handler = s.errorRecoveryMiddleware(s.handler)

	s.http = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
	}

	return s
}

// registerRoutes sets up the HTTP routes
func (s *Server) registerRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api.HandleFunc("/facilities", s.handleListFacilities).Methods(http.MethodGet)
	api.HandleFunc("/facilities/{id}", s.handleGetFacility).Methods(http.MethodGet)
	api.HandleFunc("/facilities/{id}/violations", s.handleListViolations).Methods(http.MethodGet)
	api.HandleFunc("/facilities/{id}/risk", s.handleGetRisk).Methods(http.MethodGet)
	api.HandleFunc("/facilities/{id}/rating", s.handleGetRating).Methods(http.MethodGet)
	api.HandleFunc("/facilities/{id}/cost", s.handleGetCost).Methods(http.MethodGet)

	api.HandleFunc("/pipeline/run", s.handleRunPipeline).Methods(http.MethodPost)
	api.HandleFunc("/pipeline/runs", s.handleListRuns).Methods(http.MethodGet)
	api.HandleFunc("/pipeline/runs/{id}", s.handleGetRun).Methods(http.MethodGet)
}

// Handler exposes the full middleware-wrapped handler, for tests
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins serving and blocks until the server stops
func (s *Server) Start() error {
	s.logger.Info("API server starting",
		logging.Component("http"), logging.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("API server shutting down", logging.Component("http"))
	return s.http.Shutdown(ctx)
}
