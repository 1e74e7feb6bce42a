// Package server wires the console's HTTP surface: session endpoints, the
// account directory API, the audit trail, the mock telemetry feed, and the
// health probes.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/regionops/rims/internal/directory/fallback"
	"github.com/regionops/rims/internal/handler"
	"github.com/regionops/rims/internal/server/middleware"
	"github.com/regionops/rims/internal/telemetry"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	SecureCookies   bool
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		ShutdownTimeout: 30 * time.Second,
		CORSOrigins:     []string{"*"},
		SecureCookies:   true,
	}
}

// Server is the console's HTTP server. It owns the chi router, the fallback
// directory, and the telemetry generator.
type Server struct {
	cfg        Config
	router     chi.Router
	dir        *fallback.Directory
	gen        *telemetry.Generator
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a Server with all routes and middleware wired. Call
// ListenAndServe to start accepting connections.
func New(cfg Config, dir *fallback.Directory, gen *telemetry.Generator, logger *slog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		dir:    dir,
		gen:    gen,
		logger: logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chimw.Compress(5))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	authHandler := handler.NewAuthHandler(s.dir, s.cfg.SecureCookies)
	userHandler := handler.NewUserHandler(s.dir)
	auditHandler := handler.NewAuditHandler(s.dir)
	metricsHandler := handler.NewMetricsHandler(s.gen, s.dir)

	r.Route("/api/v1", func(r chi.Router) {
		// Session endpoints carry their own cookie handling.
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/session", authHandler.Session)

		// Everything else requires a live session.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(s.dir))

			r.Get("/users", userHandler.List)
			r.Get("/logs", auditHandler.List)
			r.Get("/metrics", metricsHandler.Snapshot)
			r.Get("/dashboard", metricsHandler.Dashboard)

			// Mutations are admin-only.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin())

				r.Post("/users", userHandler.Create)
				r.Patch("/users/{id}", userHandler.UpdateRole)
				r.Delete("/users/{id}", userHandler.Delete)
			})
		})
	})

	s.router = r
}

// handleHealthz is a liveness probe. Returns 200 if the process is running.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// handleReadyz reports whether the durable directory is serving or the
// console is degraded to the in-memory store. Degraded mode still serves
// requests, so this stays 200 with an explicit mode field.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	mode := "database"
	if s.dir.Degraded() {
		mode = "memory"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "ok",
		"mode":   mode,
	})
}

// ListenAndServe starts the HTTP server and blocks until SIGINT or SIGTERM,
// then drains in-flight requests before returning.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
