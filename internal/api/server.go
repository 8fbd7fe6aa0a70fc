// Package api serves the dashboard and operations endpoints.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// DashboardUser and DashboardPassword protect /api. Empty user
	// disables auth (local development only).
	DashboardUser     string `yaml:"dashboard_user"`
	DashboardPassword string `yaml:"dashboard_password"`
}

// Server is the HTTP front end.
type Server struct {
	config   ServerConfig
	handlers *Handlers
	router   *chi.Mux
	server   *http.Server
}

// NewServer wires routes and middleware around the handlers.
func NewServer(config ServerConfig, handlers *Handlers) *Server {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/up", handlers.Health)

	r.Route("/api", func(r chi.Router) {
		if config.DashboardUser != "" {
			r.Use(BasicAuth(config.DashboardUser, config.DashboardPassword))
		}
		r.Get("/metrics", handlers.Metrics)
		r.Get("/stats", handlers.Stats)
		r.Get("/runs", handlers.Runs)
		r.Post("/sync", handlers.RunSync)
	})

	return &Server{config: config, handlers: handlers, router: r}
}

// Handler exposes the router (tests).
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	s.server = &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		// A sync run does its work inside the request, so writes get a
		// generous ceiling.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}
	return s.server.ListenAndServe()
}
