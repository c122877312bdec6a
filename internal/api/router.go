package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Vsjangal/httpsched/internal/core"
)

// Server is the REST control plane over the Scheduler Engine described in
// spec §6. It never reaches into the engine's internals directly — all
// mutations go through the same core.ControlSurface the MCP transport
// (internal/mcp) uses over stdio, and all reads go through
// core.Repository.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	repo       core.Repository
	control    *core.ControlSurface
	logger     *slog.Logger
	authToken  string
}

// NewServer constructs the HTTP API server and mounts its routes.
func NewServer(addr, authToken string, repo core.Repository, control *core.ControlSurface, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:    router,
		repo:      repo,
		control:   control,
		logger:    logger,
		authToken: authToken,
	}
	s.registerRoutes()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start begins serving HTTP requests. It blocks until the server is
// shut down or fails.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Group(func(r chi.Router) {
		if s.authToken != "" {
			r.Use(AuthMiddleware(s.authToken, s.logger))
		}

		r.Route("/targets", func(r chi.Router) {
			r.Post("/", s.handleCreateTarget)
			r.Get("/", s.handleListTargets)
			r.Get("/{targetID}", s.handleGetTarget)
			r.Put("/{targetID}", s.handleUpdateTarget)
			r.Delete("/{targetID}", s.handleDeleteTarget)
		})

		r.Route("/schedules", func(r chi.Router) {
			r.Post("/", s.handleCreateSchedule)
			r.Get("/", s.handleListSchedules)
			r.Get("/{scheduleID}", s.handleGetSchedule)
			r.Post("/{scheduleID}/pause", s.handlePauseSchedule)
			r.Post("/{scheduleID}/resume", s.handleResumeSchedule)
			r.Delete("/{scheduleID}", s.handleDeleteSchedule)
		})

		r.Route("/runs", func(r chi.Router) {
			r.Get("/", s.handleListRuns)
			r.Get("/{runID}", s.handleGetRun)
		})

		r.Get("/metrics", s.handleMetrics)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
