// Package run defines the audit trail for scheduler turns. Every turn gets
// a run record; plans, executions, and notable events hang off it.
package run

import (
	"context"
	"errors"
	"time"

	"github.com/colonyops/foreman/internal/core/plan"
)

var ErrNotFound = errors.New("run not found")

// Source identifies what triggered a turn.
type Source string

const (
	SourceCLI  Source = "cli"
	SourceHTTP Source = "http"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning       Status = "running"
	StatusCompleted     Status = "completed"
	StatusFailed        Status = "failed"
	StatusClarification Status = "clarification"
)

// Run is one turn through the scheduler.
type Run struct {
	ID            string     `json:"id"`
	SessionID     string     `json:"session_id"`
	Source        Source     `json:"source"`
	Message       string     `json:"message"`
	Status        Status     `json:"status"`
	Response      string     `json:"response,omitempty"`
	Error         string     `json:"error,omitempty"`
	TasksPlanned  int        `json:"tasks_planned"`
	TasksExecuted int        `json:"tasks_executed"`
	TasksFailed   int        `json:"tasks_failed"`
	Replans       int        `json:"replans"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

// Outcome closes a run record: terminal status plus the turn's tallies.
type Outcome struct {
	Status        Status
	Response      string
	Error         string
	TasksPlanned  int
	TasksExecuted int
	TasksFailed   int
	Replans       int
}

// LogEntry is a notable event recorded during a run.
type LogEntry struct {
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// PlanRecord captures a plan generation as the scheduler accepted it.
type PlanRecord struct {
	Generation int         `json:"generation"`
	Reasoning  string      `json:"reasoning,omitempty"`
	Tasks      []plan.Task `json:"tasks"`
	CreatedAt  time.Time   `json:"created_at"`
}

// Detail is a run with its full audit trail.
type Detail struct {
	Run        Run              `json:"run"`
	Plans      []PlanRecord     `json:"plans"`
	Executions []plan.Execution `json:"executions"`
	Logs       []LogEntry       `json:"logs"`
}

// Store persists the audit trail. Writes are best effort from the
// scheduler's point of view; an audit failure never aborts a turn.
type Store interface {
	Create(ctx context.Context, r Run) error
	Finish(ctx context.Context, id string, out Outcome) error
	AppendLog(ctx context.Context, runID, level, message string) error
	AppendExecution(ctx context.Context, runID string, exec plan.Execution) error
	AppendPlan(ctx context.Context, runID string, rec PlanRecord) error
	Get(ctx context.Context, id string) (Detail, error)
	List(ctx context.Context, limit int) ([]Run, error)
	ListBySession(ctx context.Context, sessionID string, limit int) ([]Run, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
