package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// APIResponse is the standard response envelope for all HTTP API responses.
type APIResponse struct {
	Data any          `json:"data,omitempty"`
	Meta ResponseMeta `json:"meta"`
}

// APIError is the standard error response envelope.
type APIError struct {
	Error ErrorDetail  `json:"error"`
	Meta  ResponseMeta `json:"meta"`
}

// ResponseMeta contains request metadata included in every response.
type ResponseMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorDetail describes an API error. Details carries the
// field-to-message map for validation failures.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorCode constants for standard API error codes.
const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeValidation    = "VALIDATION_FAILED"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodeRateLimited   = "RATE_LIMITED"
)

// LoginRequest is the request body for POST /login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate checks required fields, collecting one message per field.
func (r LoginRequest) Validate() *ValidationError {
	fields := map[string]string{}
	if strings.TrimSpace(r.Username) == "" {
		fields["username"] = "username is required"
	}
	if strings.TrimSpace(r.Password) == "" {
		fields["password"] = "password is required"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// LoginResponse is the response for POST /login.
type LoginResponse struct {
	Token     string    `json:"token"`
	Type      string    `json:"type"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AgentRequest is the request body for POST /agents and PUT /agents/{id}.
// Updates replace both name and description.
type AgentRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

// Validate checks required fields.
func (r AgentRequest) Validate() *ValidationError {
	if strings.TrimSpace(r.Name) == "" {
		return &ValidationError{Fields: map[string]string{"name": "name is required"}}
	}
	return nil
}

// TaskRequest is the request body for POST /tasks and PUT /tasks/{id}.
// SupportedAgentIDs fully replaces the task's compatibility set.
type TaskRequest struct {
	Title             string      `json:"title"`
	Description       *string     `json:"description,omitempty"`
	SupportedAgentIDs []uuid.UUID `json:"supported_agent_ids"`
}

// Validate checks required fields.
func (r TaskRequest) Validate() *ValidationError {
	fields := map[string]string{}
	if strings.TrimSpace(r.Title) == "" {
		fields["title"] = "title is required"
	}
	if len(r.SupportedAgentIDs) == 0 {
		fields["supported_agent_ids"] = "at least one supported agent id is required"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// StartExecutionRequest is the request body for POST /executions/start.
type StartExecutionRequest struct {
	TaskID  uuid.UUID `json:"task_id"`
	AgentID uuid.UUID `json:"agent_id"`
}

// Validate checks required fields.
func (r StartExecutionRequest) Validate() *ValidationError {
	fields := map[string]string{}
	if r.TaskID == uuid.Nil {
		fields["task_id"] = "task_id is required"
	}
	if r.AgentID == uuid.Nil {
		fields["agent_id"] = "agent_id is required"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// CompleteExecutionRequest is the request body for POST /executions/{id}/complete.
type CompleteExecutionRequest struct {
	Result string `json:"result"`
}

// FailExecutionRequest is the request body for POST /executions/{id}/fail.
type FailExecutionRequest struct {
	ErrorMessage string `json:"error_message"`
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Postgres string `json:"postgres"`
	Uptime   int64  `json:"uptime_seconds"`
}
