// Package plan defines the task graph a planner produces for a session and
// the execution records accumulated while working through it. Tasks form a
// DAG through their DependsOn edges; executions are append-only facts about
// attempts to run them.
package plan

import (
	"encoding/json"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusDone      Status = "done"
	StatusFailed    Status = "failed"
	StatusAbandoned Status = "abandoned"
)

// Task is a single unit of work inside a plan. IDs are unique across all
// generations of a session's plans so that executions stay addressable.
type Task struct {
	ID          string   `json:"id"`
	Tool        string   `json:"tool"`
	Description string   `json:"description"`
	DependsOn   []string `json:"depends_on,omitempty"`
	Status      Status   `json:"status"`
}

// Plan is what a planner returns for a turn. When NeedsClarification is set
// the task list is empty and the question goes straight back to the user.
type Plan struct {
	Tasks                 []Task `json:"tasks"`
	Reasoning             string `json:"reasoning,omitempty"`
	NeedsClarification    bool   `json:"needs_clarification,omitempty"`
	ClarificationQuestion string `json:"clarification_question,omitempty"`
}

// Task returns the task with the given id, or nil.
func (p *Plan) Task(id string) *Task {
	for i := range p.Tasks {
		if p.Tasks[i].ID == id {
			return &p.Tasks[i]
		}
	}
	return nil
}

// Execution records one attempt to run a task. Records are never mutated
// after creation; a retry after a replan produces a new record.
type Execution struct {
	TaskID       string          `json:"task_id"`
	Tool         string          `json:"tool"`
	Input        string          `json:"input"`
	Output       json.RawMessage `json:"output,omitempty"`
	Success      bool            `json:"success"`
	ErrorMessage string          `json:"error_message,omitempty"`
	StartedAt    time.Time       `json:"started_at"`
	CompletedAt  time.Time       `json:"completed_at"`
}
