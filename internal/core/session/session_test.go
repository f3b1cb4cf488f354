package session

import (
	"testing"

	"github.com/colonyops/foreman/internal/core/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecentMessages(t *testing.T) {
	s := New("sess-1")
	for _, msg := range []string{"a", "b", "c", "d"} {
		s.AppendMessage(RoleUser, msg)
	}

	t.Run("limit trims oldest", func(t *testing.T) {
		recent := s.RecentMessages(2)
		require.Len(t, recent, 2)
		assert.Equal(t, "c", recent[0].Content)
		assert.Equal(t, "d", recent[1].Content)
	})

	t.Run("zero limit returns all", func(t *testing.T) {
		assert.Len(t, s.RecentMessages(0), 4)
	})

	t.Run("limit above length returns all", func(t *testing.T) {
		assert.Len(t, s.RecentMessages(10), 4)
	})
}

func TestReplacePlan(t *testing.T) {
	s := New("sess-1")
	first := &plan.Plan{Tasks: []plan.Task{
		{ID: "t1", Tool: "search", Status: plan.StatusDone},
		{ID: "t2", Tool: "search", Status: plan.StatusFailed},
		{ID: "t3", Tool: "search", Status: plan.StatusPending},
	}}
	s.Plan = first
	s.Executions = []plan.Execution{{TaskID: "t1", Success: true}}

	second := &plan.Plan{Tasks: []plan.Task{{ID: "t4", Tool: "search", Status: plan.StatusPending}}}
	s.ReplacePlan(second)

	require.Len(t, s.Archive, 1)
	assert.Equal(t, 1, s.Generation)
	assert.Same(t, second, s.Plan)
	assert.Empty(t, s.Executions)

	archived := s.Archive[0].Plan
	assert.Equal(t, plan.StatusDone, archived.Tasks[0].Status)
	assert.Equal(t, plan.StatusFailed, archived.Tasks[1].Status)
	assert.Equal(t, plan.StatusAbandoned, archived.Tasks[2].Status)
	assert.Len(t, s.Archive[0].Executions, 1)
}

func TestUsedTaskIDs(t *testing.T) {
	s := New("sess-1")
	s.Plan = &plan.Plan{Tasks: []plan.Task{
		{ID: "t1", Tool: "search", Status: plan.StatusFailed},
		{ID: "t2", Tool: "search", Status: plan.StatusPending},
	}}
	s.Executions = []plan.Execution{{TaskID: "t1", Success: false}}
	s.ReplacePlan(&plan.Plan{Tasks: []plan.Task{{ID: "t3", Tool: "search"}}})
	s.Executions = []plan.Execution{{TaskID: "t3", Success: true}}

	used := s.UsedTaskIDs()
	assert.True(t, used["t1"], "executed ids are reserved")
	assert.True(t, used["t3"])
	// planned but never run, free for the next generation
	assert.False(t, used["t2"])
	assert.False(t, used["t4"])
}

func TestAllExecutions(t *testing.T) {
	s := New("sess-1")
	s.Plan = &plan.Plan{Tasks: []plan.Task{{ID: "t1", Tool: "search", Status: plan.StatusDone}}}
	s.Executions = []plan.Execution{{TaskID: "t1", Success: true}}
	s.ReplacePlan(&plan.Plan{Tasks: []plan.Task{{ID: "t2", Tool: "search"}}})
	s.Executions = []plan.Execution{{TaskID: "t2", Success: true}}

	all := s.AllExecutions()
	require.Len(t, all, 2)
	assert.Equal(t, "t1", all[0].TaskID)
	assert.Equal(t, "t2", all[1].TaskID)
}
