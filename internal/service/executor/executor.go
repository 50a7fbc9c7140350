// Package executor authorizes and records task executions.
//
// Starting an execution validates the (task, agent) pair once, at
// creation time: the task and agent must both resolve among live
// records and the agent must be in the task's compatibility set.
// A created execution rests in the running state until an external
// caller resolves it — there is no background progression.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/taskforge/taskforge/internal/model"
	"github.com/taskforge/taskforge/internal/storage"
)

// Service encapsulates execution authorization and bookkeeping.
type Service struct {
	db     *storage.DB
	logger *slog.Logger
}

// New creates a new executor Service.
func New(db *storage.DB, logger *slog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// Start authorizes the (task, agent) pair and records a running
// execution. Membership is checked against the task's compatibility set
// as it exists right now; later changes to the set do not invalidate the
// execution.
func (s *Service) Start(ctx context.Context, taskID, agentID uuid.UUID) (model.TaskExecution, error) {
	task, err := s.db.GetTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.TaskExecution{}, &model.NotFoundError{Entity: "Task", ID: taskID}
		}
		return model.TaskExecution{}, err
	}

	agent, err := s.db.GetAgent(ctx, agentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.TaskExecution{}, &model.NotFoundError{Entity: "Agent", ID: agentID}
		}
		return model.TaskExecution{}, err
	}

	if !task.SupportsAgent(agent.ID) {
		return model.TaskExecution{}, &model.InvalidRequestError{
			Message: fmt.Sprintf("Agent %s is not supported for task %s", agent.ID, task.ID),
		}
	}

	exec, err := s.db.CreateExecution(ctx, model.TaskExecution{
		TaskID:  task.ID,
		AgentID: agent.ID,
		Status:  model.ExecutionRunning,
	})
	if err != nil {
		return model.TaskExecution{}, err
	}
	s.logger.Info("execution started", "execution_id", exec.ID, "task_id", task.ID, "agent_id", agent.ID)
	return exec, nil
}

// Complete marks an execution completed with the given result. The
// transition is unguarded: a terminal execution can be completed again,
// overwriting its result. Storage still reports unknown ids as absent.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, result string) (model.TaskExecution, error) {
	exec, err := s.db.CompleteExecution(ctx, id, result)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.TaskExecution{}, &model.NotFoundError{Entity: "Task execution", ID: id}
		}
		return model.TaskExecution{}, err
	}
	s.logger.Info("execution completed", "execution_id", id)
	return exec, nil
}

// Fail marks an execution failed with the given error message. Like
// Complete, the transition is unguarded.
func (s *Service) Fail(ctx context.Context, id uuid.UUID, errorMessage string) (model.TaskExecution, error) {
	exec, err := s.db.FailExecution(ctx, id, errorMessage)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.TaskExecution{}, &model.NotFoundError{Entity: "Task execution", ID: id}
		}
		return model.TaskExecution{}, err
	}
	s.logger.Info("execution failed", "execution_id", id)
	return exec, nil
}

// Get returns an execution by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (model.TaskExecution, error) {
	exec, err := s.db.GetExecution(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.TaskExecution{}, &model.NotFoundError{Entity: "Task execution", ID: id}
		}
		return model.TaskExecution{}, err
	}
	return exec, nil
}

// List returns all executions, or only those with the given status when
// status is non-nil.
func (s *Service) List(ctx context.Context, status *model.ExecutionStatus) ([]model.TaskExecution, error) {
	if status != nil {
		return s.db.ListExecutionsByStatus(ctx, *status)
	}
	return s.db.ListExecutions(ctx)
}

// ListRunning returns all currently running executions.
func (s *Service) ListRunning(ctx context.Context) ([]model.TaskExecution, error) {
	return s.db.ListExecutionsByStatus(ctx, model.ExecutionRunning)
}
