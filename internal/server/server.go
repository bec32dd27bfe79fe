package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/creatorstack/keywarden/internal/api"
	"github.com/creatorstack/keywarden/internal/auth"
	"github.com/creatorstack/keywarden/internal/config"
)

// HealthChecker can verify that a backing resource is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Server struct {
	httpServer    *http.Server
	config        *config.ServerConfig
	healthChecker HealthChecker
}

// New wires the router. The admin surface (key CRUD, mappings, users,
// backup) sits behind JWT auth when a secret is configured; jwtSvc == nil
// leaves it open for local development.
func New(cfg *config.ServerConfig, handler *api.Handler, adminHandler *api.AdminHandler, jwtSvc *auth.JWTService, checker HealthChecker) *Server {
	s := &Server{
		config:        cfg,
		healthChecker: checker,
	}

	router := chi.NewRouter()

	router.Use(api.Recovery)
	// The dashboard is served from arbitrary origins; the API is origin-open
	// and protected by bearer auth instead.
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	router.Get("/health", healthHandler)
	router.Get("/readyz", s.readyzHandler)
	router.Handle("/metrics", promhttp.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		if adminHandler != nil {
			r.Post("/auth/login", adminHandler.Login)
		}

		r.Group(func(r chi.Router) {
			if jwtSvc != nil {
				r.Use(api.JWTAuthMiddleware(jwtSvc))
			}

			r.With(httprate.LimitByIP(cfg.RateLimitPerMin, time.Minute)).
				Post("/keys/validate", handler.ValidateAndSaveKey)

			r.Get("/keys", handler.ListKeys)
			r.Delete("/keys/{id}", handler.DeleteKey)
			r.Post("/keys/{id}/toggle", handler.ToggleKey)

			r.Get("/mappings", handler.ListMappings)
			r.Post("/mappings", handler.AddMapping)
			r.Put("/mappings/{function}", handler.UpdateMapping)

			r.Get("/functions/{function}/credential", handler.ResolveFunction)
			r.Get("/stats/validations", handler.ValidationStats)

			r.Post("/admin/backup", handler.ExportBackup)
			if adminHandler != nil {
				r.Post("/admin/users", adminHandler.CreateUser)
				r.Get("/admin/users", adminHandler.ListUsers)
			}
		})
	})

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

func (s *Server) Start() error {
	slog.Info("starting server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) ShutdownWithTimeout(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.Shutdown(ctx)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) readyzHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")

	if err := s.healthChecker.Ping(ctx); err != nil {
		slog.Warn("readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
