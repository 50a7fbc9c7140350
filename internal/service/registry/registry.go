// Package registry provides the shared business logic for agent and
// task management.
//
// The HTTP handlers delegate here so that lookup semantics (soft-deleted
// records are absent), agent-set resolution, and the domain error
// taxonomy stay consistent across every entry point.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/taskforge/taskforge/internal/model"
	"github.com/taskforge/taskforge/internal/storage"
)

// Service encapsulates agent and task registry logic.
type Service struct {
	db     *storage.DB
	logger *slog.Logger
}

// New creates a new registry Service.
func New(db *storage.DB, logger *slog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// ListAgents returns all live agents.
func (s *Service) ListAgents(ctx context.Context) ([]model.Agent, error) {
	return s.db.ListAgents(ctx)
}

// GetAgent returns a live agent, or NotFoundError if the id is absent
// or soft-deleted.
func (s *Service) GetAgent(ctx context.Context, id uuid.UUID) (model.Agent, error) {
	agent, err := s.db.GetAgent(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.Agent{}, &model.NotFoundError{Entity: "Agent", ID: id}
		}
		return model.Agent{}, err
	}
	return agent, nil
}

// CreateAgent creates a new agent from the request.
func (s *Service) CreateAgent(ctx context.Context, req model.AgentRequest) (model.Agent, error) {
	agent, err := s.db.CreateAgent(ctx, model.Agent{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return model.Agent{}, err
	}
	s.logger.Info("agent created", "agent_id", agent.ID, "name", agent.Name)
	return agent, nil
}

// UpdateAgent replaces a live agent's name and description.
func (s *Service) UpdateAgent(ctx context.Context, id uuid.UUID, req model.AgentRequest) (model.Agent, error) {
	agent, err := s.db.UpdateAgent(ctx, model.Agent{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.Agent{}, &model.NotFoundError{Entity: "Agent", ID: id}
		}
		return model.Agent{}, err
	}
	return agent, nil
}

// DeleteAgent soft-deletes a live agent. Tasks referencing the agent
// keep their association rows.
func (s *Service) DeleteAgent(ctx context.Context, id uuid.UUID) error {
	if err := s.db.SoftDeleteAgent(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &model.NotFoundError{Entity: "Agent", ID: id}
		}
		return err
	}
	s.logger.Info("agent deleted", "agent_id", id)
	return nil
}

// ListTasks returns all live tasks with their resolved agent id sets.
func (s *Service) ListTasks(ctx context.Context) ([]model.Task, error) {
	return s.db.ListTasks(ctx)
}

// GetTask returns a live task, or NotFoundError if the id is absent or
// soft-deleted.
func (s *Service) GetTask(ctx context.Context, id uuid.UUID) (model.Task, error) {
	task, err := s.db.GetTask(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.Task{}, &model.NotFoundError{Entity: "Task", ID: id}
		}
		return model.Task{}, err
	}
	return task, nil
}

// CreateTask creates a new task after resolving every requested agent
// id to a live agent. Nothing is written when resolution fails.
func (s *Service) CreateTask(ctx context.Context, req model.TaskRequest) (model.Task, error) {
	agentIDs, err := s.resolveAgents(ctx, req.SupportedAgentIDs)
	if err != nil {
		return model.Task{}, err
	}

	task, err := s.db.CreateTask(ctx, model.Task{
		Title:             req.Title,
		Description:       req.Description,
		SupportedAgentIDs: agentIDs,
	})
	if err != nil {
		return model.Task{}, err
	}
	s.logger.Info("task created", "task_id", task.ID, "title", task.Title, "agents", len(agentIDs))
	return task, nil
}

// UpdateTask replaces a live task's title, description, and entire
// compatibility set. The requested agent ids are resolved first; the
// task is untouched if any of them fails to resolve.
func (s *Service) UpdateTask(ctx context.Context, id uuid.UUID, req model.TaskRequest) (model.Task, error) {
	agentIDs, err := s.resolveAgents(ctx, req.SupportedAgentIDs)
	if err != nil {
		return model.Task{}, err
	}

	task, err := s.db.UpdateTask(ctx, model.Task{
		ID:                id,
		Title:             req.Title,
		Description:       req.Description,
		SupportedAgentIDs: agentIDs,
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.Task{}, &model.NotFoundError{Entity: "Task", ID: id}
		}
		return model.Task{}, err
	}
	return task, nil
}

// DeleteTask soft-deletes a live task. Referenced agents are untouched.
func (s *Service) DeleteTask(ctx context.Context, id uuid.UUID) error {
	if err := s.db.SoftDeleteTask(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &model.NotFoundError{Entity: "Task", ID: id}
		}
		return err
	}
	s.logger.Info("task deleted", "task_id", id)
	return nil
}

// resolveAgents checks each requested id against live agents, in request
// order, and reports the first one that fails to resolve. Duplicates are
// collapsed.
func (s *Service) resolveAgents(ctx context.Context, agentIDs []uuid.UUID) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]bool, len(agentIDs))
	resolved := make([]uuid.UUID, 0, len(agentIDs))
	for _, agentID := range agentIDs {
		if seen[agentID] {
			continue
		}
		seen[agentID] = true
		if _, err := s.db.GetAgent(ctx, agentID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, &model.InvalidRequestError{
					Message: fmt.Sprintf("Agent not found with id: %s", agentID),
				}
			}
			return nil, err
		}
		resolved = append(resolved, agentID)
	}
	return resolved, nil
}
