// Package server provides the HTTP server and routing for Tally.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/alevras/tally/internal/config"
	"github.com/alevras/tally/internal/database"
	ledgerhandlers "github.com/alevras/tally/internal/modules/ledger/handlers"
)

// FeedStatus reports live feed connectivity for the status endpoint
type FeedStatus interface {
	IsConnected() bool
}

// Config holds server configuration
type Config struct {
	Log            zerolog.Logger
	LedgerDB       *database.DB
	CacheDB        *database.DB
	Config         *config.Config
	Port           int
	DevMode        bool
	LedgerHandlers *ledgerhandlers.LedgerHandlers
	Feed           FeedStatus // nil when the feed client is disabled
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	ledgerDB       *database.DB
	cacheDB        *database.DB
	cfg            *config.Config
	ledgerHandlers *ledgerhandlers.LedgerHandlers
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:         chi.NewRouter(),
		log:            cfg.Log.With().Str("component", "server").Logger(),
		ledgerDB:       cfg.LedgerDB,
		cacheDB:        cfg.CacheDB,
		cfg:            cfg.Config,
		ledgerHandlers: cfg.LedgerHandlers,
		systemHandlers: NewSystemHandlers(cfg.Log, cfg.Config.DataDir, cfg.LedgerDB, cfg.CacheDB, cfg.Feed),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		s.ledgerHandlers.RegisterRoutes(r)
		r.Get("/system/status", s.systemHandlers.HandleSystemStatus)
	})
}

// Start begins listening for requests
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs each request with timing information
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
