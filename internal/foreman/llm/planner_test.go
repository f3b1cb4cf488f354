package llm

import (
	"testing"
	"time"

	"github.com/colonyops/foreman/internal/core/plan"
	"github.com/colonyops/foreman/internal/core/session"
	"github.com/colonyops/foreman/internal/foreman"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlan(t *testing.T) {
	t.Run("bare json", func(t *testing.T) {
		p, err := ParsePlan(`{"tasks":[{"id":"t1","tool":"search","description":"look up"}],"reasoning":"one lookup"}`)
		require.NoError(t, err)
		require.Len(t, p.Tasks, 1)
		assert.Equal(t, "t1", p.Tasks[0].ID)
		assert.Equal(t, plan.StatusPending, p.Tasks[0].Status)
		assert.Equal(t, "one lookup", p.Reasoning)
	})

	t.Run("fenced json with language tag", func(t *testing.T) {
		p, err := ParsePlan("```json\n{\"tasks\":[{\"id\":\"t1\",\"tool\":\"search\",\"description\":\"x\"}]}\n```")
		require.NoError(t, err)
		assert.Len(t, p.Tasks, 1)
	})

	t.Run("fenced json without tag", func(t *testing.T) {
		p, err := ParsePlan("```\n{\"tasks\":[]}\n```")
		require.NoError(t, err)
		assert.Empty(t, p.Tasks)
	})

	t.Run("clarification", func(t *testing.T) {
		p, err := ParsePlan(`{"tasks":[],"needs_clarification":true,"clarification_question":"which city?"}`)
		require.NoError(t, err)
		assert.True(t, p.NeedsClarification)
		assert.Equal(t, "which city?", p.ClarificationQuestion)
	})

	t.Run("prose is an error", func(t *testing.T) {
		_, err := ParsePlan("Sure! Here is my plan: first I will search.")
		require.Error(t, err)
	})
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripFences(`{"a":1}`))
	assert.Equal(t, `{"a":1}`, StripFences("  ```json\n{\"a\":1}\n```  "))
}

func TestBuildPlannerPrompt(t *testing.T) {
	req := foreman.PlanRequest{
		Messages: []session.Message{{Role: session.RoleUser, Content: "weather in oslo"}},
		Tools: []foreman.ToolInfo{
			{Name: "search", Description: "web search.", UseWhen: "facts are needed.", Example: "weather in Oslo"},
		},
	}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("lists tools and time", func(t *testing.T) {
		prompt := BuildPlannerPrompt(req, now)
		assert.Contains(t, prompt, "- search: web search.")
		assert.Contains(t, prompt, "Use when: facts are needed.")
		assert.Contains(t, prompt, now.Format(time.RFC1123))
		assert.NotContains(t, prompt, "Failed tasks")
	})

	t.Run("replan includes failures and earlier plans", func(t *testing.T) {
		req := req
		req.Replan = true
		req.Failures = []plan.Execution{{TaskID: "t1", Tool: "search", ErrorMessage: "timeout"}}
		req.Archive = []session.Generation{{Plan: &plan.Plan{Tasks: []plan.Task{
			{ID: "t1", Tool: "search", Description: "look up", Status: plan.StatusFailed},
		}}}}

		prompt := BuildPlannerPrompt(req, now)
		assert.Contains(t, prompt, "Failed tasks")
		assert.Contains(t, prompt, "t1 (search): timeout")
		assert.Contains(t, prompt, "Earlier plan:")
		assert.Contains(t, prompt, "Do not reuse task ids")
	})
}

func TestBuildResponderPrompt(t *testing.T) {
	req := foreman.RespondRequest{
		Tasks: []plan.Task{
			{ID: "t1", Description: "look up weather"},
			{ID: "t2", Description: "book table"},
		},
		Executions: []plan.Execution{
			{TaskID: "t1", Success: true, Output: []byte(`{"temp":12}`)},
			{TaskID: "t2", Success: false, ErrorMessage: "api down"},
		},
	}

	prompt := BuildResponderPrompt(req)
	assert.Contains(t, prompt, `look up weather: {"temp":12}`)
	assert.Contains(t, prompt, "book table: failed: api down")
}
