// Package api implements the HTTP ingress surface described in spec §6:
// enqueue, inspect, delete, purge, and stats, plus the ambient operator
// endpoints (/admin/health, /admin/events, /metrics) every teacher-style
// service carries alongside its core contract.
package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	apimw "github.com/torquehq/torque/internal/api/middleware"
	"github.com/torquehq/torque/internal/config"
	"github.com/torquehq/torque/internal/dispatcher"
	"github.com/torquehq/torque/internal/livefeed"
	"github.com/torquehq/torque/internal/store"
)

// Server wires the dispatch core onto an HTTP router.
type Server struct {
	router     *chi.Mux
	store      store.Store
	dispatcher *dispatcher.Dispatcher
	hub        *livefeed.Hub
	redis      *redis.Client // nilable; only backs GET /admin/workers
	cfg        *config.Config
}

// NewServer builds the router. hub and redisClient may be nil: a nil hub
// skips mounting /admin/events, a nil redisClient makes /admin/workers
// report an empty list rather than query worker liveness.
func NewServer(st store.Store, disp *dispatcher.Dispatcher, hub *livefeed.Hub, redisClient *redis.Client, cfg *config.Config) *Server {
	s := &Server{
		router:     chi.NewRouter(),
		store:      st,
		dispatcher: disp,
		hub:        hub,
		redis:      redisClient,
		cfg:        cfg,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(chimw.Recoverer)
	if s.cfg.Server.EnableHSTS {
		s.router.Use(apimw.HSTS)
	}
}

func (s *Server) setupRoutes() {
	authCfg := apimw.AuthConfig{Enabled: s.cfg.Auth.Enabled, Secret: s.cfg.Auth.JWTSecret}

	s.router.Group(func(r chi.Router) {
		r.Use(apimw.Authenticate(authCfg))
		if s.cfg.Server.RateLimitRPS > 0 {
			r.Use(apimw.ClientRateLimit(s.cfg.Server.RateLimitRPS))
		}

		r.Post("/", s.handleEnqueue)
		r.Get("/tasks/{id}", s.handleGet)
		r.Delete("/tasks/{id}", s.handleDelete)
		r.Delete("/", s.handleDeleteAll)
		r.Get("/stats", s.handleStats)

		if s.hub != nil {
			r.Get("/admin/events", livefeed.Handler(s.hub))
		}
	})

	s.router.Get("/admin/health", s.handleHealth)
	s.router.Get("/admin/workers", s.handleWorkers)

	if s.cfg.Metrics.Enabled {
		s.router.Handle(s.cfg.Metrics.Path, promhttp.Handler())
	}
}

// Router exposes the underlying chi router, e.g. for http.Server.Handler.
func (s *Server) Router() *chi.Mux {
	return s.router
}
