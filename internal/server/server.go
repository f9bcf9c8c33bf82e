package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jobtrack/application-tracker/internal/auth"
	"github.com/jobtrack/application-tracker/internal/config"
	"github.com/jobtrack/application-tracker/internal/logging"
	"github.com/jobtrack/application-tracker/internal/tracker"
)

const maxBodyBytes = 1 << 20

// Deps are the services the HTTP layer delegates to.
type Deps struct {
	Tracker     *tracker.Service
	Auth        *auth.Service
	Logger      logging.Logger
	RequireAuth bool
}

// Server handles HTTP requests
type Server struct {
	config  config.ServerConfig
	deps    Deps
	logger  logging.Logger
	handler http.Handler
	server  *http.Server
}

// NewServer creates a new HTTP server
func NewServer(cfg config.ServerConfig, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}
	s := &Server{
		config: cfg,
		deps:   deps,
		logger: deps.Logger,
	}

	api := http.NewServeMux()
	api.HandleFunc("GET /api/automations/recent-applications", s.handleListApplications)
	api.HandleFunc("POST /api/automations/recent-applications", s.handleCreateApplication)
	api.HandleFunc("PATCH /api/automations/recent-applications/{id}", s.handleUpdateApplication)
	api.HandleFunc("DELETE /api/automations/recent-applications/{id}", s.handleDeleteApplication)
	api.HandleFunc("GET /api/automations/logs", s.handleLogs)
	api.HandleFunc("GET /api/automations/logs/summary", s.handleLogSummary)
	api.HandleFunc("GET /api/automations/integrations", s.handleIntegrations)
	api.HandleFunc("GET /api/automations/status", s.handleStatusData)
	api.HandleFunc("GET /api/automations/job-boards", s.handleJobBoards)
	api.HandleFunc("GET /api/automations/dashboard", s.handleDashboard)
	api.HandleFunc("GET /api/automations/reports/export", s.handleExport)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/auth/signup", s.handleSignup)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.Handle("/api/automations/", s.authenticate(api))

	s.handler = s.logRequests(s.cors(mux))

	readTimeout, writeTimeout := cfg.ReadTimeout, cfg.WriteTimeout
	if readTimeout <= 0 {
		readTimeout = 15 * time.Second
	}
	if writeTimeout <= 0 {
		writeTimeout = 15 * time.Second
	}
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	return s
}

// Handler exposes the fully wrapped handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// handleHealth reports liveness and store reachability
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "healthy", http.StatusOK
	if err := s.deps.Tracker.Ping(r.Context()); err != nil {
		s.logger.Warn("health check failed", "error", err)
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
