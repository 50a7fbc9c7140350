package executor_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskforge/taskforge/internal/model"
	"github.com/taskforge/taskforge/internal/service/executor"
	"github.com/taskforge/taskforge/internal/service/registry"
	"github.com/taskforge/taskforge/internal/storage"
	"github.com/taskforge/taskforge/internal/testutil"
)

var (
	testDB *storage.DB
	reg    *registry.Service
	exec   *executor.Service
)

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

	logger := testutil.Logger()
	reg = registry.New(testDB, logger)
	exec = executor.New(testDB, logger)

	os.Exit(m.Run())
}

// fixture creates an agent and a task supporting it.
func fixture(t *testing.T, name string) (model.Agent, model.Task) {
	t.Helper()
	ctx := context.Background()

	agent, err := reg.CreateAgent(ctx, model.AgentRequest{Name: name})
	require.NoError(t, err)

	task, err := reg.CreateTask(ctx, model.TaskRequest{
		Title:             name + " task",
		SupportedAgentIDs: []uuid.UUID{agent.ID},
	})
	require.NoError(t, err)
	return agent, task
}

func TestStartExecutionSucceeds(t *testing.T) {
	ctx := context.Background()
	agent, task := fixture(t, "start-ok")

	e, err := exec.Start(ctx, task.ID, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionRunning, e.Status)
	assert.Equal(t, task.ID, e.TaskID)
	assert.Equal(t, agent.ID, e.AgentID)
	assert.False(t, e.StartedAt.IsZero())
	assert.Nil(t, e.CompletedAt)
}

func TestStartExecutionUnknownTask(t *testing.T) {
	ctx := context.Background()
	agent, _ := fixture(t, "unknown-task")
	bogusTask := uuid.New()

	_, err := exec.Start(ctx, bogusTask, agent.ID)
	var nf *model.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Task not found with id: "+bogusTask.String(), nf.Error())
}

func TestStartExecutionUnknownAgent(t *testing.T) {
	ctx := context.Background()
	_, task := fixture(t, "unknown-agent")
	bogusAgent := uuid.New()

	_, err := exec.Start(ctx, task.ID, bogusAgent)
	var nf *model.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Agent not found with id: "+bogusAgent.String(), nf.Error())
}

func TestStartExecutionUnsupportedAgent(t *testing.T) {
	ctx := context.Background()
	_, task := fixture(t, "unsupported")

	// A live agent outside the task's compatibility set.
	outsider, err := reg.CreateAgent(ctx, model.AgentRequest{Name: "Agent B"})
	require.NoError(t, err)

	before, err := exec.List(ctx, nil)
	require.NoError(t, err)

	_, err = exec.Start(ctx, task.ID, outsider.ID)
	var ir *model.InvalidRequestError
	require.ErrorAs(t, err, &ir)
	assert.Equal(t,
		fmt.Sprintf("Agent %s is not supported for task %s", outsider.ID, task.ID),
		ir.Message)

	// A rejected start leaves no execution record.
	after, err := exec.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, after, len(before))
}

func TestStartExecutionDeletedTask(t *testing.T) {
	ctx := context.Background()
	agent, task := fixture(t, "deleted-task")

	require.NoError(t, reg.DeleteTask(ctx, task.ID))

	_, err := exec.Start(ctx, task.ID, agent.ID)
	var nf *model.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Task", nf.Entity)
}

func TestStartExecutionDeletedAgent(t *testing.T) {
	ctx := context.Background()
	agent, task := fixture(t, "deleted-agent")

	require.NoError(t, reg.DeleteAgent(ctx, agent.ID))

	// The association row survives the agent's soft delete, but lookup
	// of the agent itself fails first.
	_, err := exec.Start(ctx, task.ID, agent.ID)
	var nf *model.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Agent", nf.Entity)
}

func TestCompleteAndFailExecution(t *testing.T) {
	ctx := context.Background()
	agent, task := fixture(t, "resolve")

	e, err := exec.Start(ctx, task.ID, agent.ID)
	require.NoError(t, err)

	completed, err := exec.Complete(ctx, e.ID, "done: 3 artifacts")
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionCompleted, completed.Status)
	require.NotNil(t, completed.Result)
	assert.Equal(t, "done: 3 artifacts", *completed.Result)
	require.NotNil(t, completed.CompletedAt)

	// Unguarded overwrite: completing again replaces the result.
	again, err := exec.Complete(ctx, e.ID, "done: corrected")
	require.NoError(t, err)
	require.NotNil(t, again.Result)
	assert.Equal(t, "done: corrected", *again.Result)

	failed, err := exec.Fail(ctx, e.ID, "post-hoc failure")
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionFailed, failed.Status)
	require.NotNil(t, failed.ErrorMessage)
	assert.Equal(t, "post-hoc failure", *failed.ErrorMessage)
}

func TestResolveUnknownExecution(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	_, err := exec.Complete(ctx, id, "r")
	var nf *model.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Task execution not found with id: "+id.String(), nf.Error())

	_, err = exec.Fail(ctx, id, "e")
	require.ErrorAs(t, err, &nf)

	_, err = exec.Get(ctx, id)
	require.ErrorAs(t, err, &nf)
}

func TestListRunningFilters(t *testing.T) {
	ctx := context.Background()
	agent, task := fixture(t, "filter")

	e1, err := exec.Start(ctx, task.ID, agent.ID)
	require.NoError(t, err)
	e2, err := exec.Start(ctx, task.ID, agent.ID)
	require.NoError(t, err)

	_, err = exec.Complete(ctx, e2.ID, "finished")
	require.NoError(t, err)

	running, err := exec.ListRunning(ctx)
	require.NoError(t, err)
	assert.True(t, containsExecution(running, e1.ID))
	assert.False(t, containsExecution(running, e2.ID))

	status := model.ExecutionCompleted
	done, err := exec.List(ctx, &status)
	require.NoError(t, err)
	assert.True(t, containsExecution(done, e2.ID))

	// Cancelled is filterable even though nothing produces it.
	status = model.ExecutionCancelled
	cancelled, err := exec.List(ctx, &status)
	require.NoError(t, err)
	assert.Empty(t, cancelled)
}

func containsExecution(execs []model.TaskExecution, id uuid.UUID) bool {
	for _, e := range execs {
		if e.ID == id {
			return true
		}
	}
	return false
}
