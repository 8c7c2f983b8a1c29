package api

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/terra-clan/simulex-engine/internal/attempt"
	"github.com/terra-clan/simulex-engine/internal/auth"
	"github.com/terra-clan/simulex-engine/internal/config"
	"github.com/terra-clan/simulex-engine/internal/dashboard"
	"github.com/terra-clan/simulex-engine/internal/health"
	"github.com/terra-clan/simulex-engine/internal/metrics"
	"github.com/terra-clan/simulex-engine/internal/storage"
)

// Dependencies are the components the API serves
type Dependencies struct {
	Repo      storage.Repository
	Tracker   *attempt.Tracker
	Dashboard *dashboard.Service
	Health    *health.Registry
	Metrics   *metrics.Metrics
	Verifier  *auth.Verifier
	Limiter   *RateLimiter
	Logger    *slog.Logger
}

// Server represents the HTTP API server
type Server struct {
	config         config.ServerConfig
	router         *chi.Mux
	repo           storage.Repository
	tracker        *attempt.Tracker
	dashboard      *dashboard.Service
	health         *health.Registry
	metrics        *metrics.Metrics
	limiter        *RateLimiter
	logger         *slog.Logger
	authMiddleware *AuthMiddleware
}

// NewServer creates a new API server
func NewServer(cfg config.ServerConfig, deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	registry := deps.Health
	if registry == nil {
		registry = health.NewRegistry()
	}
	limiter := deps.Limiter
	if limiter == nil {
		limiter = NewRateLimiter(0, 0)
	}

	s := &Server{
		config:         cfg,
		repo:           deps.Repo,
		tracker:        deps.Tracker,
		dashboard:      deps.Dashboard,
		health:         registry,
		metrics:        deps.Metrics,
		limiter:        limiter,
		logger:         logger,
		authMiddleware: NewAuthMiddleware(deps.Verifier, logger),
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}

	origins := s.config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	// credentialed requests only from explicitly listed origins
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: !slices.Contains(origins, "*"),
		MaxAge:           300,
	}))

	timeout := s.config.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	// Public endpoints
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	// API v1 routes (protected by authentication)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware.Authenticate)

		// long-lived stream, no request timeout
		r.Get("/results/{id}/timer", s.handleTimerWS)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(timeout))

			r.Get("/me", s.handleMe)

			// Catalog
			r.Get("/roles", s.handleListRoles)
			r.Get("/roles/{id}", s.handleGetRole)
			r.Get("/simulations", s.handleListSimulations)
			r.Get("/simulations/{id}", s.handleGetSimulation)
			r.Get("/simulations/{id}/tasks", s.handleListTasks)
			r.Get("/tasks/{id}", s.handleGetTask)

			// Attempts
			r.With(s.limiter.Limit).Post("/simulations/{id}/tasks/{taskID}/attempt", s.handleOpenAttempt)
			r.With(s.limiter.Limit).Post("/results/{id}/submit", s.handleSubmit)
			r.Get("/results/{id}", s.handleGetResult)
			r.Get("/results", s.handleListResults)

			r.Get("/dashboard", s.handleDashboard)
		})
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
