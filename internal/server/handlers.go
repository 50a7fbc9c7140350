package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/taskforge/taskforge/internal/auth"
	"github.com/taskforge/taskforge/internal/model"
	"github.com/taskforge/taskforge/internal/service/executor"
	"github.com/taskforge/taskforge/internal/service/registry"
	"github.com/taskforge/taskforge/internal/storage"
)

// Handlers holds HTTP handler dependencies.
type Handlers struct {
	db                  *storage.DB
	jwtMgr              *auth.JWTManager
	registrySvc         *registry.Service
	executorSvc         *executor.Service
	logger              *slog.Logger
	startedAt           time.Time
	version             string
	maxRequestBodyBytes int64
}

// HandlersDeps holds all dependencies for constructing Handlers.
type HandlersDeps struct {
	DB                  *storage.DB
	JWTMgr              *auth.JWTManager
	RegistrySvc         *registry.Service
	ExecutorSvc         *executor.Service
	Logger              *slog.Logger
	Version             string
	MaxRequestBodyBytes int64
}

// NewHandlers creates a new Handlers with all dependencies.
func NewHandlers(d HandlersDeps) *Handlers {
	return &Handlers{
		db:                  d.DB,
		jwtMgr:              d.JWTMgr,
		registrySvc:         d.RegistrySvc,
		executorSvc:         d.ExecutorSvc,
		logger:              d.Logger,
		startedAt:           time.Now(),
		version:             d.Version,
		maxRequestBodyBytes: d.MaxRequestBodyBytes,
	}
}

// HandleLogin handles POST /login. Credential failures return the same
// generic message regardless of whether the username exists.
func (h *Handlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if verr := req.Validate(); verr != nil {
		h.writeDomainError(w, r, verr)
		return
	}

	user, err := h.db.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Burn a hash so timing does not reveal whether the username exists.
			auth.DummyVerify()
			writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorized, "invalid username or password")
			return
		}
		h.writeInternalError(w, r, "failed to look up user", err)
		return
	}

	valid, err := auth.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil || !valid {
		writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorized, "invalid username or password")
		return
	}

	token, expiresAt, err := h.jwtMgr.IssueToken(user)
	if err != nil {
		h.writeInternalError(w, r, "failed to issue token", err)
		return
	}

	writeJSON(w, r, http.StatusOK, model.LoginResponse{
		Token:     token,
		Type:      "Bearer",
		Username:  user.Username,
		ExpiresAt: expiresAt,
	})
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	pgStatus := "connected"
	status := "healthy"
	httpStatus := http.StatusOK

	if err := h.db.Ping(r.Context()); err != nil {
		pgStatus = "disconnected"
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, r, httpStatus, model.HealthResponse{
		Status:   status,
		Version:  h.version,
		Postgres: pgStatus,
		Uptime:   int64(time.Since(h.startedAt).Seconds()),
	})
}

// SeedUser creates an account with the given credentials if the username is
// not taken. An empty password skips the seed.
func (h *Handlers) SeedUser(ctx context.Context, username, password string, role model.UserRole) error {
	if password == "" {
		h.logger.Info("no password configured, skipping user seed", "username", username)
		return nil
	}

	_, err := h.db.GetUserByUsername(ctx, username)
	if err == nil {
		h.logger.Info("user already exists, skipping seed", "username", username)
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("seed user: look up %s: %w", username, err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("seed user: hash password: %w", err)
	}

	if _, err := h.db.CreateUser(ctx, model.User{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
	}); err != nil {
		return fmt.Errorf("seed user: create %s: %w", username, err)
	}

	h.logger.Info("seeded user", "username", username, "role", role)
	return nil
}
