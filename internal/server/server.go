package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/taskforge/taskforge/internal/auth"
	"github.com/taskforge/taskforge/internal/ratelimit"
	"github.com/taskforge/taskforge/internal/service/executor"
	"github.com/taskforge/taskforge/internal/service/registry"
	"github.com/taskforge/taskforge/internal/storage"
)

// Server is the Taskforge HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	handlers   *Handlers
	logger     *slog.Logger
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Handlers returns the underlying Handlers for access to SeedUser etc.
func (s *Server) Handlers() *Handlers {
	return s.handlers
}

// ServerConfig holds all dependencies and configuration for creating a Server.
// Limiter is optional; nil disables rate limiting.
type ServerConfig struct {
	// Required dependencies.
	DB          *storage.DB
	JWTMgr      *auth.JWTManager
	RegistrySvc *registry.Service
	ExecutorSvc *executor.Service
	Logger      *slog.Logger

	// Optional dependencies (nil = disabled).
	Limiter ratelimit.Limiter

	// HTTP server settings.
	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	Version             string
	MaxRequestBodyBytes int64
}

// New creates a new HTTP server with all routes configured.
func New(cfg ServerConfig) *Server {
	h := NewHandlers(HandlersDeps{
		DB:                  cfg.DB,
		JWTMgr:              cfg.JWTMgr,
		RegistrySvc:         cfg.RegistrySvc,
		ExecutorSvc:         cfg.ExecutorSvc,
		Logger:              cfg.Logger,
		Version:             cfg.Version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
	})

	// Request ID extractor for rate limit error responses.
	reqIDFunc := func(r *http.Request) string {
		return RequestIDFromContext(r.Context())
	}

	limiter := cfg.Limiter
	if limiter == nil {
		limiter = ratelimit.NoopLimiter{}
	}

	// Authenticated traffic is keyed by client IP plus principal; login
	// attempts by IP alone since no principal exists yet.
	apiRL := ratelimit.Middleware(limiter, principalKeyFunc, reqIDFunc, cfg.Logger)
	authRL := ratelimit.Middleware(limiter, ratelimit.IPKeyFunc, reqIDFunc, cfg.Logger)

	mux := http.NewServeMux()

	// Auth endpoint (no auth required, rate limited by IP).
	mux.Handle("POST /login", authRL(http.HandlerFunc(h.HandleLogin)))

	// Agent registry.
	mux.Handle("GET /agents", apiRL(http.HandlerFunc(h.HandleListAgents)))
	mux.Handle("POST /agents", apiRL(http.HandlerFunc(h.HandleCreateAgent)))
	mux.Handle("GET /agents/{id}", apiRL(http.HandlerFunc(h.HandleGetAgent)))
	mux.Handle("PUT /agents/{id}", apiRL(http.HandlerFunc(h.HandleUpdateAgent)))
	mux.Handle("DELETE /agents/{id}", apiRL(http.HandlerFunc(h.HandleDeleteAgent)))

	// Task registry.
	mux.Handle("GET /tasks", apiRL(http.HandlerFunc(h.HandleListTasks)))
	mux.Handle("POST /tasks", apiRL(http.HandlerFunc(h.HandleCreateTask)))
	mux.Handle("GET /tasks/{id}", apiRL(http.HandlerFunc(h.HandleGetTask)))
	mux.Handle("PUT /tasks/{id}", apiRL(http.HandlerFunc(h.HandleUpdateTask)))
	mux.Handle("DELETE /tasks/{id}", apiRL(http.HandlerFunc(h.HandleDeleteTask)))

	// Execution lifecycle.
	mux.Handle("POST /executions/start", apiRL(http.HandlerFunc(h.HandleStartExecution)))
	mux.Handle("POST /executions/{id}/complete", apiRL(http.HandlerFunc(h.HandleCompleteExecution)))
	mux.Handle("POST /executions/{id}/fail", apiRL(http.HandlerFunc(h.HandleFailExecution)))
	mux.Handle("GET /executions", apiRL(http.HandlerFunc(h.HandleListExecutions)))
	mux.Handle("GET /executions/running", apiRL(http.HandlerFunc(h.HandleListRunningExecutions)))
	mux.Handle("GET /executions/{id}", apiRL(http.HandlerFunc(h.HandleGetExecution)))

	// Health (no auth, no rate limit).
	mux.HandleFunc("GET /health", h.HandleHealth)

	// Middleware chain (outermost executes first):
	// request ID → security headers → tracing → logging → auth → recovery → handler.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = authMiddleware(cfg.JWTMgr, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = securityHeadersMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		handler:  handler,
		handlers: h,
		logger:   cfg.Logger,
	}
}

// principalKeyFunc keys rate limiting by client IP plus authenticated
// principal so clients behind a shared NAT don't exhaust each other's quota.
func principalKeyFunc(r *http.Request) string {
	principal := "anonymous"
	if claims := ClaimsFromContext(r.Context()); claims != nil {
		principal = claims.Username
	}
	return ratelimit.IPKeyFunc(r) + ":" + principal
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
