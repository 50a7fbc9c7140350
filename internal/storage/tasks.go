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

// CreateTask inserts a new task together with its compatibility set
// atomically within a single transaction.
func (db *DB) CreateTask(ctx context.Context, task model.Task) (model.Task, error) {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return model.Task{}, fmt.Errorf("storage: begin create task tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`INSERT INTO tasks (id, title, description, deleted, created_at, updated_at)
		 VALUES ($1, $2, $3, FALSE, $4, $5)`,
		task.ID, task.Title, task.Description, task.CreatedAt, task.UpdatedAt,
	); err != nil {
		return model.Task{}, fmt.Errorf("storage: create task: %w", err)
	}

	if err := insertSupportedAgentsTx(ctx, tx, task.ID, task.SupportedAgentIDs); err != nil {
		return model.Task{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Task{}, fmt.Errorf("storage: commit create task tx: %w", err)
	}
	return task, nil
}

// GetTask retrieves a live task by id with its supported agent id set.
func (db *DB) GetTask(ctx context.Context, id uuid.UUID) (model.Task, error) {
	var t model.Task
	err := db.pool.QueryRow(ctx,
		`SELECT id, title, description, deleted, created_at, updated_at, deleted_at
		 FROM tasks WHERE id = $1 AND deleted = FALSE`, id,
	).Scan(&t.ID, &t.Title, &t.Description, &t.Deleted, &t.CreatedAt, &t.UpdatedAt, &t.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Task{}, fmt.Errorf("storage: task %s: %w", id, ErrNotFound)
		}
		return model.Task{}, fmt.Errorf("storage: get task: %w", err)
	}

	t.SupportedAgentIDs, err = db.supportedAgentIDs(ctx, t.ID)
	if err != nil {
		return model.Task{}, err
	}
	return t, nil
}

// ListTasks returns all live tasks with their supported agent id sets,
// ordered by creation time. Agent ids are loaded with one additional
// query rather than one per task.
func (db *DB) ListTasks(ctx context.Context) ([]model.Task, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, title, description, deleted, created_at, updated_at, deleted_at
		 FROM tasks WHERE deleted = FALSE ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		var t model.Task
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Deleted, &t.CreatedAt, &t.UpdatedAt, &t.DeletedAt); err != nil {
			return nil, fmt.Errorf("storage: scan task: %w", err)
		}
		t.SupportedAgentIDs = []uuid.UUID{}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: list tasks: %w", err)
	}

	if len(tasks) == 0 {
		return tasks, nil
	}

	assocRows, err := db.pool.Query(ctx,
		`SELECT tsa.task_id, tsa.agent_id
		 FROM task_supported_agents tsa
		 JOIN tasks t ON t.id = tsa.task_id
		 WHERE t.deleted = FALSE
		 ORDER BY tsa.agent_id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list task agents: %w", err)
	}
	defer assocRows.Close()

	byTask := make(map[uuid.UUID][]uuid.UUID)
	for assocRows.Next() {
		var taskID, agentID uuid.UUID
		if err := assocRows.Scan(&taskID, &agentID); err != nil {
			return nil, fmt.Errorf("storage: scan task agent: %w", err)
		}
		byTask[taskID] = append(byTask[taskID], agentID)
	}
	if err := assocRows.Err(); err != nil {
		return nil, fmt.Errorf("storage: list task agents: %w", err)
	}

	for i := range tasks {
		if ids, ok := byTask[tasks[i].ID]; ok {
			tasks[i].SupportedAgentIDs = ids
		}
	}
	return tasks, nil
}

// UpdateTask replaces a live task's title, description, and entire
// compatibility set atomically within a single transaction.
// Returns ErrNotFound if the task is absent or soft-deleted.
func (db *DB) UpdateTask(ctx context.Context, task model.Task) (model.Task, error) {
	task.UpdatedAt = time.Now().UTC()

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return model.Task{}, fmt.Errorf("storage: begin update task tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var t model.Task
	err = tx.QueryRow(ctx,
		`UPDATE tasks SET title = $2, description = $3, updated_at = $4
		 WHERE id = $1 AND deleted = FALSE
		 RETURNING id, title, description, deleted, created_at, updated_at, deleted_at`,
		task.ID, task.Title, task.Description, task.UpdatedAt,
	).Scan(&t.ID, &t.Title, &t.Description, &t.Deleted, &t.CreatedAt, &t.UpdatedAt, &t.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Task{}, fmt.Errorf("storage: task %s: %w", task.ID, ErrNotFound)
		}
		return model.Task{}, fmt.Errorf("storage: update task: %w", err)
	}

	// Full replace, not a merge: drop the old set, insert the new one.
	if _, err := tx.Exec(ctx,
		`DELETE FROM task_supported_agents WHERE task_id = $1`, task.ID,
	); err != nil {
		return model.Task{}, fmt.Errorf("storage: clear task agents: %w", err)
	}
	if err := insertSupportedAgentsTx(ctx, tx, task.ID, task.SupportedAgentIDs); err != nil {
		return model.Task{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Task{}, fmt.Errorf("storage: commit update task tx: %w", err)
	}

	t.SupportedAgentIDs = task.SupportedAgentIDs
	return t, nil
}

// SoftDeleteTask marks a live task deleted and stamps deleted_at.
// Association rows are kept; referenced agents are untouched.
func (db *DB) SoftDeleteTask(ctx context.Context, id uuid.UUID) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE tasks SET deleted = TRUE, deleted_at = $2, updated_at = $2
		 WHERE id = $1 AND deleted = FALSE`,
		id, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("storage: delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("storage: task %s: %w", id, ErrNotFound)
	}
	return nil
}

func (db *DB) supportedAgentIDs(ctx context.Context, taskID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT agent_id FROM task_supported_agents WHERE task_id = $1 ORDER BY agent_id ASC`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: get task agents: %w", err)
	}
	defer rows.Close()

	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("storage: scan task agent: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func insertSupportedAgentsTx(ctx context.Context, tx pgx.Tx, taskID uuid.UUID, agentIDs []uuid.UUID) error {
	for _, agentID := range agentIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO task_supported_agents (task_id, agent_id) VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`,
			taskID, agentID,
		); err != nil {
			return fmt.Errorf("storage: insert task agent: %w", err)
		}
	}
	return nil
}
