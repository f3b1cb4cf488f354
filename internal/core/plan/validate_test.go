package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPlan(tasks ...Task) *Plan {
	for i := range tasks {
		if tasks[i].Status == "" {
			tasks[i].Status = StatusPending
		}
		if tasks[i].Tool == "" {
			tasks[i].Tool = "search"
		}
	}
	return &Plan{Tasks: tasks}
}

func TestValidate(t *testing.T) {
	t.Run("valid chain", func(t *testing.T) {
		p := newPlan(
			Task{ID: "t1"},
			Task{ID: "t2", DependsOn: []string{"t1"}},
			Task{ID: "t3", DependsOn: []string{"t1", "t2"}},
		)
		require.NoError(t, Validate(p, nil))
	})

	t.Run("empty plan", func(t *testing.T) {
		err := Validate(&Plan{}, nil)
		assert.ErrorIs(t, err, ErrEmptyPlan)
	})

	t.Run("duplicate id within plan", func(t *testing.T) {
		p := newPlan(Task{ID: "t1"}, Task{ID: "t1"})
		var dup *DuplicateIDError
		require.ErrorAs(t, Validate(p, nil), &dup)
		assert.Equal(t, "t1", dup.ID)
	})

	t.Run("id already executed", func(t *testing.T) {
		p := newPlan(Task{ID: "t1"})
		var dup *DuplicateIDError
		require.ErrorAs(t, Validate(p, map[string]bool{"t1": true}), &dup)
		assert.Equal(t, "t1", dup.ID)
	})

	t.Run("missing tool", func(t *testing.T) {
		p := &Plan{Tasks: []Task{{ID: "t1", Status: StatusPending}}}
		var inv *InvalidTaskError
		require.ErrorAs(t, Validate(p, nil), &inv)
		assert.Contains(t, inv.Reason, "missing tool")
	})

	t.Run("unknown dependency", func(t *testing.T) {
		p := newPlan(Task{ID: "t1", DependsOn: []string{"nope"}})
		var inv *InvalidTaskError
		require.ErrorAs(t, Validate(p, nil), &inv)
		assert.Contains(t, inv.Reason, `unknown dependency "nope"`)
	})

	t.Run("self dependency", func(t *testing.T) {
		p := newPlan(Task{ID: "t1", DependsOn: []string{"t1"}})
		var inv *InvalidTaskError
		require.ErrorAs(t, Validate(p, nil), &inv)
		assert.Contains(t, inv.Reason, "depends on itself")
	})

	t.Run("cycle", func(t *testing.T) {
		p := newPlan(
			Task{ID: "t1", DependsOn: []string{"t3"}},
			Task{ID: "t2", DependsOn: []string{"t1"}},
			Task{ID: "t3", DependsOn: []string{"t2"}},
			Task{ID: "t4"},
		)
		var cyc *CycleError
		require.ErrorAs(t, Validate(p, nil), &cyc)
		assert.Equal(t, []string{"t1", "t2", "t3"}, cyc.IDs)
	})
}
