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

const executionColumns = `id, task_id, agent_id, status, started_at, completed_at, result, error_message`

// CreateExecution inserts a new task execution.
func (db *DB) CreateExecution(ctx context.Context, exec model.TaskExecution) (model.TaskExecution, error) {
	if exec.ID == uuid.Nil {
		exec.ID = uuid.New()
	}
	if exec.StartedAt.IsZero() {
		exec.StartedAt = time.Now().UTC()
	}

	_, err := db.pool.Exec(ctx,
		`INSERT INTO task_executions (id, task_id, agent_id, status, started_at, completed_at, result, error_message)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		exec.ID, exec.TaskID, exec.AgentID, string(exec.Status),
		exec.StartedAt, exec.CompletedAt, exec.Result, exec.ErrorMessage,
	)
	if err != nil {
		return model.TaskExecution{}, fmt.Errorf("storage: create execution: %w", err)
	}
	return exec, nil
}

// GetExecution retrieves an execution by id.
func (db *DB) GetExecution(ctx context.Context, id uuid.UUID) (model.TaskExecution, error) {
	var e model.TaskExecution
	err := db.pool.QueryRow(ctx,
		`SELECT `+executionColumns+` FROM task_executions WHERE id = $1`, id,
	).Scan(&e.ID, &e.TaskID, &e.AgentID, &e.Status, &e.StartedAt, &e.CompletedAt, &e.Result, &e.ErrorMessage)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.TaskExecution{}, fmt.Errorf("storage: execution %s: %w", id, ErrNotFound)
		}
		return model.TaskExecution{}, fmt.Errorf("storage: get execution: %w", err)
	}
	return e, nil
}

// ListExecutions returns all executions, newest first.
func (db *DB) ListExecutions(ctx context.Context) ([]model.TaskExecution, error) {
	return db.queryExecutions(ctx,
		`SELECT `+executionColumns+` FROM task_executions ORDER BY started_at DESC`)
}

// ListExecutionsByStatus returns executions with the given status, newest first.
func (db *DB) ListExecutionsByStatus(ctx context.Context, status model.ExecutionStatus) ([]model.TaskExecution, error) {
	return db.queryExecutions(ctx,
		`SELECT `+executionColumns+` FROM task_executions WHERE status = $1 ORDER BY started_at DESC`,
		string(status))
}

// CompleteExecution marks an execution completed with the given result.
// The transition is unguarded: status, completed_at, and result are
// overwritten regardless of the current state.
func (db *DB) CompleteExecution(ctx context.Context, id uuid.UUID, result string) (model.TaskExecution, error) {
	return db.resolveExecution(ctx, id,
		`UPDATE task_executions SET status = $2, completed_at = $3, result = $4
		 WHERE id = $1
		 RETURNING `+executionColumns,
		string(model.ExecutionCompleted), time.Now().UTC(), result)
}

// FailExecution marks an execution failed with the given error message.
// Like CompleteExecution, the transition is unguarded.
func (db *DB) FailExecution(ctx context.Context, id uuid.UUID, errorMessage string) (model.TaskExecution, error) {
	return db.resolveExecution(ctx, id,
		`UPDATE task_executions SET status = $2, completed_at = $3, error_message = $4
		 WHERE id = $1
		 RETURNING `+executionColumns,
		string(model.ExecutionFailed), time.Now().UTC(), errorMessage)
}

func (db *DB) resolveExecution(ctx context.Context, id uuid.UUID, query string, args ...any) (model.TaskExecution, error) {
	var e model.TaskExecution
	queryArgs := append([]any{id}, args...)
	err := db.pool.QueryRow(ctx, query, queryArgs...).
		Scan(&e.ID, &e.TaskID, &e.AgentID, &e.Status, &e.StartedAt, &e.CompletedAt, &e.Result, &e.ErrorMessage)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.TaskExecution{}, fmt.Errorf("storage: execution %s: %w", id, ErrNotFound)
		}
		return model.TaskExecution{}, fmt.Errorf("storage: resolve execution: %w", err)
	}
	return e, nil
}

func (db *DB) queryExecutions(ctx context.Context, query string, args ...any) ([]model.TaskExecution, error) {
	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: list executions: %w", err)
	}
	defer rows.Close()

	executions := []model.TaskExecution{}
	for rows.Next() {
		var e model.TaskExecution
		if err := rows.Scan(&e.ID, &e.TaskID, &e.AgentID, &e.Status, &e.StartedAt, &e.CompletedAt, &e.Result, &e.ErrorMessage); err != nil {
			return nil, fmt.Errorf("storage: scan execution: %w", err)
		}
		executions = append(executions, e)
	}
	return executions, rows.Err()
}
