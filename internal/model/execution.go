package model

import (
	"time"

	"github.com/google/uuid"
)

// ExecutionStatus represents the lifecycle state of a task execution.
type ExecutionStatus string

const (
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionFailed    ExecutionStatus = "failed"
	// ExecutionCancelled is part of the status vocabulary and accepted by
	// status filters, but no code path currently produces it.
	ExecutionCancelled ExecutionStatus = "cancelled"
)

// ValidExecutionStatus reports whether s is a known status value.
func ValidExecutionStatus(s ExecutionStatus) bool {
	switch s {
	case ExecutionRunning, ExecutionCompleted, ExecutionFailed, ExecutionCancelled:
		return true
	}
	return false
}

// TaskExecution records one attempt to run a task with a specific agent.
// Created in the running state; an external caller resolves it via the
// complete or fail operations. The agent's membership in the task's
// compatibility set is checked once, at creation time.
type TaskExecution struct {
	ID           uuid.UUID       `json:"id"`
	TaskID       uuid.UUID       `json:"task_id"`
	AgentID      uuid.UUID       `json:"agent_id"`
	Status       ExecutionStatus `json:"status"`
	StartedAt    time.Time       `json:"started_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	Result       *string         `json:"result,omitempty"`
	ErrorMessage *string         `json:"error_message,omitempty"`
}
