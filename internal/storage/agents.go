package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/taskforge/taskforge/internal/model"
)

// CreateAgent inserts a new agent.
func (db *DB) CreateAgent(ctx context.Context, agent model.Agent) (model.Agent, error) {
	if agent.ID == uuid.Nil {
		agent.ID = uuid.New()
	}
	now := time.Now().UTC()
	if agent.CreatedAt.IsZero() {
		agent.CreatedAt = now
	}
	agent.UpdatedAt = now

	_, err := db.pool.Exec(ctx,
		`INSERT INTO agents (id, name, description, deleted, created_at, updated_at)
		 VALUES ($1, $2, $3, FALSE, $4, $5)`,
		agent.ID, agent.Name, agent.Description, agent.CreatedAt, agent.UpdatedAt,
	)
	if err != nil {
		return model.Agent{}, fmt.Errorf("storage: create agent: %w", err)
	}
	return agent, nil
}

// GetAgent retrieves a live agent by id. Soft-deleted agents are treated
// as absent.
func (db *DB) GetAgent(ctx context.Context, id uuid.UUID) (model.Agent, error) {
	var a model.Agent
	err := db.pool.QueryRow(ctx,
		`SELECT id, name, description, deleted, created_at, updated_at, deleted_at
		 FROM agents WHERE id = $1 AND deleted = FALSE`, id,
	).Scan(&a.ID, &a.Name, &a.Description, &a.Deleted, &a.CreatedAt, &a.UpdatedAt, &a.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Agent{}, fmt.Errorf("storage: agent %s: %w", id, ErrNotFound)
		}
		return model.Agent{}, fmt.Errorf("storage: get agent: %w", err)
	}
	return a, nil
}

// ListAgents returns all live agents ordered by creation time.
func (db *DB) ListAgents(ctx context.Context) ([]model.Agent, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, name, description, deleted, created_at, updated_at, deleted_at
		 FROM agents WHERE deleted = FALSE ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list agents: %w", err)
	}
	defer rows.Close()

	agents := []model.Agent{}
	for rows.Next() {
		var a model.Agent
		if err := rows.Scan(&a.ID, &a.Name, &a.Description, &a.Deleted, &a.CreatedAt, &a.UpdatedAt, &a.DeletedAt); err != nil {
			return nil, fmt.Errorf("storage: scan agent: %w", err)
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// UpdateAgent replaces a live agent's name and description.
// Returns ErrNotFound if the agent is absent or soft-deleted.
func (db *DB) UpdateAgent(ctx context.Context, agent model.Agent) (model.Agent, error) {
	agent.UpdatedAt = time.Now().UTC()
	var a model.Agent
	err := db.pool.QueryRow(ctx,
		`UPDATE agents SET name = $2, description = $3, updated_at = $4
		 WHERE id = $1 AND deleted = FALSE
		 RETURNING id, name, description, deleted, created_at, updated_at, deleted_at`,
		agent.ID, agent.Name, agent.Description, agent.UpdatedAt,
	).Scan(&a.ID, &a.Name, &a.Description, &a.Deleted, &a.CreatedAt, &a.UpdatedAt, &a.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Agent{}, fmt.Errorf("storage: agent %s: %w", agent.ID, ErrNotFound)
		}
		return model.Agent{}, fmt.Errorf("storage: update agent: %w", err)
	}
	return a, nil
}

// SoftDeleteAgent marks a live agent deleted and stamps deleted_at.
// The row is never physically removed, and referencing tasks keep their
// association rows.
func (db *DB) SoftDeleteAgent(ctx context.Context, id uuid.UUID) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE agents SET deleted = TRUE, deleted_at = $2, updated_at = $2
		 WHERE id = $1 AND deleted = FALSE`,
		id, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("storage: delete agent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("storage: agent %s: %w", id, ErrNotFound)
	}
	return nil
}
