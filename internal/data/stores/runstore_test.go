package stores

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/colonyops/foreman/internal/core/plan"
	"github.com/colonyops/foreman/internal/core/run"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStore(t *testing.T) {
	ctx := context.Background()
	store := NewRunStore(newTestDB(t))

	started := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, store.Create(ctx, run.Run{
		ID:        "run-1",
		SessionID: "sess-1",
		Source:    run.SourceCLI,
		Message:   "what is the weather",
		StartedAt: started,
	}))

	t.Run("audit trail round trip", func(t *testing.T) {
		require.NoError(t, store.AppendPlan(ctx, "run-1", run.PlanRecord{
			Generation: 0,
			Reasoning:  "two lookups then a summary",
			Tasks: []plan.Task{
				{ID: "t1", Tool: "search", Status: plan.StatusPending},
				{ID: "t2", Tool: "summarize", DependsOn: []string{"t1"}, Status: plan.StatusPending},
			},
		}))
		require.NoError(t, store.AppendExecution(ctx, "run-1", plan.Execution{
			TaskID:      "t1",
			Tool:        "search",
			Input:       "look up weather",
			Output:      json.RawMessage(`{"temp":12}`),
			Success:     true,
			StartedAt:   started,
			CompletedAt: started.Add(time.Second),
		}))
		require.NoError(t, store.AppendLog(ctx, "run-1", "info", "plan accepted"))
		require.NoError(t, store.Finish(ctx, "run-1", run.Outcome{
			Status:        run.StatusCompleted,
			Response:      "it is 12 degrees",
			TasksPlanned:  2,
			TasksExecuted: 2,
			TasksFailed:   1,
			Replans:       1,
		}))

		detail, err := store.Get(ctx, "run-1")
		require.NoError(t, err)

		assert.Equal(t, run.StatusCompleted, detail.Run.Status)
		assert.Equal(t, "what is the weather", detail.Run.Message)
		assert.Equal(t, "it is 12 degrees", detail.Run.Response)
		assert.Equal(t, 2, detail.Run.TasksPlanned)
		assert.Equal(t, 2, detail.Run.TasksExecuted)
		assert.Equal(t, 1, detail.Run.TasksFailed)
		assert.Equal(t, 1, detail.Run.Replans)
		require.NotNil(t, detail.Run.FinishedAt)

		require.Len(t, detail.Plans, 1)
		assert.Len(t, detail.Plans[0].Tasks, 2)
		assert.Equal(t, []string{"t1"}, detail.Plans[0].Tasks[1].DependsOn)

		require.Len(t, detail.Executions, 1)
		assert.True(t, detail.Executions[0].Success)
		assert.JSONEq(t, `{"temp":12}`, string(detail.Executions[0].Output))

		require.Len(t, detail.Logs, 1)
		assert.Equal(t, "plan accepted", detail.Logs[0].Message)
	})

	t.Run("get missing returns ErrNotFound", func(t *testing.T) {
		_, err := store.Get(ctx, "nope")
		assert.ErrorIs(t, err, run.ErrNotFound)
	})

	t.Run("list newest first", func(t *testing.T) {
		require.NoError(t, store.Create(ctx, run.Run{
			ID:        "run-2",
			SessionID: "sess-1",
			Source:    run.SourceHTTP,
			StartedAt: started.Add(time.Minute),
		}))
		runs, err := store.List(ctx, 10)
		require.NoError(t, err)
		require.Len(t, runs, 2)
		assert.Equal(t, "run-2", runs[0].ID)
	})

	t.Run("list by session", func(t *testing.T) {
		require.NoError(t, store.Create(ctx, run.Run{
			ID:        "run-3",
			SessionID: "sess-2",
			Source:    run.SourceCLI,
			StartedAt: started.Add(2 * time.Minute),
		}))
		runs, err := store.ListBySession(ctx, "sess-1", 10)
		require.NoError(t, err)
		require.Len(t, runs, 2)
		for _, r := range runs {
			assert.Equal(t, "sess-1", r.SessionID)
		}
	})

	t.Run("delete before cascades", func(t *testing.T) {
		n, err := store.DeleteBefore(ctx, started.Add(30*time.Second))
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		_, err = store.Get(ctx, "run-1")
		assert.ErrorIs(t, err, run.ErrNotFound)

		runs, err := store.List(ctx, 10)
		require.NoError(t, err)
		assert.Len(t, runs, 2)
	})
}
