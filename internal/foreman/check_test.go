package foreman

import (
	"testing"

	"github.com/colonyops/foreman/internal/core/plan"
	"github.com/stretchr/testify/assert"
)

func TestCheck(t *testing.T) {
	graph := func(statuses ...plan.Status) *plan.Plan {
		p := &plan.Plan{}
		for i, st := range statuses {
			task := plan.Task{ID: string(rune('a' + i)), Tool: "search", Status: st}
			if i > 0 {
				task.DependsOn = []string{string(rune('a' + i - 1))}
			}
			p.Tasks = append(p.Tasks, task)
		}
		return p
	}

	t.Run("fresh plan executes", func(t *testing.T) {
		p := graph(plan.StatusPending, plan.StatusPending)
		assert.Equal(t, DecisionExecute, Check(p, nil))
	})

	t.Run("all succeeded responds", func(t *testing.T) {
		p := graph(plan.StatusDone, plan.StatusDone)
		execs := []plan.Execution{
			{TaskID: "a", Success: true},
			{TaskID: "b", Success: true},
		}
		assert.Equal(t, DecisionRespond, Check(p, execs))
	})

	t.Run("failure replans even with ready work", func(t *testing.T) {
		p := &plan.Plan{Tasks: []plan.Task{
			{ID: "a", Tool: "search", Status: plan.StatusFailed},
			{ID: "b", Tool: "search", Status: plan.StatusPending},
		}}
		assert.Equal(t, DecisionReplan, Check(p, []plan.Execution{{TaskID: "a"}}))
	})

	t.Run("pending work with nothing ready replans", func(t *testing.T) {
		// dependency abandoned in an earlier generation, never succeeded
		p := &plan.Plan{Tasks: []plan.Task{
			{ID: "b", Tool: "search", Status: plan.StatusPending, DependsOn: []string{"b2"}},
			{ID: "b2", Tool: "search", Status: plan.StatusAbandoned},
		}}
		assert.Equal(t, DecisionReplan, Check(p, nil))
	})

	t.Run("respond wins over execute", func(t *testing.T) {
		p := graph(plan.StatusDone)
		assert.Equal(t, DecisionRespond, Check(p, []plan.Execution{{TaskID: "a", Success: true}}))
	})
}
