package storage_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskforge/taskforge/internal/model"
	"github.com/taskforge/taskforge/internal/storage"
	"github.com/taskforge/taskforge/internal/testutil"
)

// testDB holds a shared test database connection for all tests in this package.
var testDB *storage.DB

func TestMain(m *testing.M) {
	tc := testutil.MustStartPostgres()
	defer tc.Terminate()

	var err error
	testDB, err = tc.NewTestDB(context.Background(), testutil.Logger())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create test DB: %v\n", err)
		os.Exit(1)
	}
	defer testDB.Close()

	os.Exit(m.Run())
}

func createTestAgent(t *testing.T, name string) model.Agent {
	t.Helper()
	agent, err := testDB.CreateAgent(context.Background(), model.Agent{Name: name})
	require.NoError(t, err)
	return agent
}

func TestAgentCRUD(t *testing.T) {
	ctx := context.Background()

	desc := "runs integration suites"
	created, err := testDB.CreateAgent(ctx, model.Agent{Name: "Agent A", Description: &desc})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := testDB.GetAgent(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Agent A", got.Name)
	require.NotNil(t, got.Description)
	assert.Equal(t, desc, *got.Description)

	got.Name = "Agent A2"
	got.Description = nil
	updated, err := testDB.UpdateAgent(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, "Agent A2", updated.Name)
	assert.Nil(t, updated.Description)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt) || updated.UpdatedAt.Equal(created.UpdatedAt))
}

func TestAgentSoftDelete(t *testing.T) {
	ctx := context.Background()
	agent := createTestAgent(t, "soft-delete-me")

	require.NoError(t, testDB.SoftDeleteAgent(ctx, agent.ID))

	// Reads treat the soft-deleted agent as absent.
	_, err := testDB.GetAgent(ctx, agent.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	agents, err := testDB.ListAgents(ctx)
	require.NoError(t, err)
	for _, a := range agents {
		assert.NotEqual(t, agent.ID, a.ID, "deleted agent must not be listed")
	}

	// Mutations on deleted agents report not found.
	_, err = testDB.UpdateAgent(ctx, model.Agent{ID: agent.ID, Name: "x"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, testDB.SoftDeleteAgent(ctx, agent.ID), storage.ErrNotFound)
}

func TestGetAgentUnknownID(t *testing.T) {
	_, err := testDB.GetAgent(context.Background(), uuid.New())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTaskCRUDWithAgentSet(t *testing.T) {
	ctx := context.Background()
	a1 := createTestAgent(t, "task-crud-a1")
	a2 := createTestAgent(t, "task-crud-a2")
	a3 := createTestAgent(t, "task-crud-a3")

	created, err := testDB.CreateTask(ctx, model.Task{
		Title:             "Task A",
		SupportedAgentIDs: []uuid.UUID{a1.ID, a2.ID},
	})
	require.NoError(t, err)

	got, err := testDB.GetTask(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Task A", got.Title)
	assert.ElementsMatch(t, []uuid.UUID{a1.ID, a2.ID}, got.SupportedAgentIDs)

	// Full replace: the new set wins, nothing is merged.
	got.Title = "Task A2"
	got.SupportedAgentIDs = []uuid.UUID{a3.ID}
	updated, err := testDB.UpdateTask(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, "Task A2", updated.Title)

	reloaded, err := testDB.GetTask(ctx, created.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{a3.ID}, reloaded.SupportedAgentIDs)
}

func TestTaskAgentSetOrderIndependent(t *testing.T) {
	ctx := context.Background()
	a1 := createTestAgent(t, "order-a1")
	a2 := createTestAgent(t, "order-a2")

	created, err := testDB.CreateTask(ctx, model.Task{
		Title:             "order test",
		SupportedAgentIDs: []uuid.UUID{a2.ID, a1.ID},
	})
	require.NoError(t, err)

	got, err := testDB.GetTask(ctx, created.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{a1.ID, a2.ID}, got.SupportedAgentIDs)
}

func TestTaskSoftDelete(t *testing.T) {
	ctx := context.Background()
	agent := createTestAgent(t, "task-delete-agent")

	task, err := testDB.CreateTask(ctx, model.Task{
		Title:             "delete me",
		SupportedAgentIDs: []uuid.UUID{agent.ID},
	})
	require.NoError(t, err)

	require.NoError(t, testDB.SoftDeleteTask(ctx, task.ID))

	_, err = testDB.GetTask(ctx, task.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, testDB.SoftDeleteTask(ctx, task.ID), storage.ErrNotFound)

	// Deleting the task does not delete the referenced agent.
	_, err = testDB.GetAgent(ctx, agent.ID)
	assert.NoError(t, err)
}

func TestExecutionLifecycle(t *testing.T) {
	ctx := context.Background()
	agent := createTestAgent(t, "exec-agent")
	task, err := testDB.CreateTask(ctx, model.Task{
		Title:             "exec task",
		SupportedAgentIDs: []uuid.UUID{agent.ID},
	})
	require.NoError(t, err)

	exec, err := testDB.CreateExecution(ctx, model.TaskExecution{
		TaskID:  task.ID,
		AgentID: agent.ID,
		Status:  model.ExecutionRunning,
	})
	require.NoError(t, err)
	assert.False(t, exec.StartedAt.IsZero())

	got, err := testDB.GetExecution(ctx, exec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionRunning, got.Status)
	assert.Nil(t, got.CompletedAt)

	running, err := testDB.ListExecutionsByStatus(ctx, model.ExecutionRunning)
	require.NoError(t, err)
	assert.True(t, containsExecution(running, exec.ID))

	completed, err := testDB.CompleteExecution(ctx, exec.ID, "42 tests passed")
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionCompleted, completed.Status)
	require.NotNil(t, completed.Result)
	assert.Equal(t, "42 tests passed", *completed.Result)
	assert.NotNil(t, completed.CompletedAt)

	running, err = testDB.ListExecutionsByStatus(ctx, model.ExecutionRunning)
	require.NoError(t, err)
	assert.False(t, containsExecution(running, exec.ID))

	// Transitions are unguarded: failing an already-completed execution
	// overwrites its state.
	failed, err := testDB.FailExecution(ctx, exec.ID, "flaky environment")
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionFailed, failed.Status)
	require.NotNil(t, failed.ErrorMessage)
	assert.Equal(t, "flaky environment", *failed.ErrorMessage)
}

func TestExecutionNotFound(t *testing.T) {
	ctx := context.Background()

	_, err := testDB.GetExecution(ctx, uuid.New())
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = testDB.CompleteExecution(ctx, uuid.New(), "r")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = testDB.FailExecution(ctx, uuid.New(), "e")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUserRoundTrip(t *testing.T) {
	ctx := context.Background()

	created, err := testDB.CreateUser(ctx, model.User{
		Username:     "storage-test-user",
		PasswordHash: "salt$hash",
		Role:         model.RoleUser,
	})
	require.NoError(t, err)

	got, err := testDB.GetUserByUsername(ctx, "storage-test-user")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "salt$hash", got.PasswordHash)
	assert.Equal(t, model.RoleUser, got.Role)

	_, err = testDB.GetUserByUsername(ctx, "no-such-user")
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	// Usernames are unique.
	_, err = testDB.CreateUser(ctx, model.User{
		Username:     "storage-test-user",
		PasswordHash: "other",
		Role:         model.RoleUser,
	})
	assert.Error(t, err)
}

func containsExecution(execs []model.TaskExecution, id uuid.UUID) bool {
	for _, e := range execs {
		if e.ID == id {
			return true
		}
	}
	return false
}
