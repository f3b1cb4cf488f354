// Package foreman runs conversation turns: it asks a planner for a task
// graph, dispatches tasks to executors in dependency order, and keeps going
// until it can respond, replan, or ask the user to clarify. Session state
// is checkpointed after every transition.
package foreman

import (
	"context"
	"encoding/json"

	"github.com/colonyops/foreman/internal/core/plan"
	"github.com/colonyops/foreman/internal/core/session"
)

// ToolInfo describes one tool for the planner prompt.
type ToolInfo struct {
	Name        string
	Description string
	UseWhen     string
	Example     string
}

// PlanRequest carries everything a planner needs for one decision.
type PlanRequest struct {
	Messages []session.Message
	Tools    []ToolInfo

	// Replan is set when an earlier plan for this turn failed. Failures
	// lists the executions that caused it, and Archive the task graphs
	// already tried.
	Replan   bool
	Failures []plan.Execution
	Archive  []session.Generation
}

// Planner produces a task graph, or a clarification request, for a turn.
type Planner interface {
	Plan(ctx context.Context, req PlanRequest) (*plan.Plan, error)
}

// RespondRequest carries the completed work a responder summarizes. Tasks
// holds only tasks that actually ran, paired with their results.
type RespondRequest struct {
	Messages   []session.Message
	Tasks      []plan.Task
	Executions []plan.Execution
}

// Responder turns completed work into a user-facing reply.
type Responder interface {
	Respond(ctx context.Context, req RespondRequest) (string, error)
}

// ExecResult is the outcome of one tool invocation. A failed invocation is
// data, not an error: Success false with ErrorMessage set feeds the replan
// path, while an error return from Execute aborts the turn.
type ExecResult struct {
	Success      bool
	Output       json.RawMessage
	ErrorMessage string
}

// Executor dispatches tool invocations.
type Executor interface {
	Execute(ctx context.Context, tool, input string) ExecResult
	Known(tool string) bool
}
