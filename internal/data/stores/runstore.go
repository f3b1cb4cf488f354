package stores

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/colonyops/foreman/internal/core/plan"
	"github.com/colonyops/foreman/internal/core/run"
	"github.com/colonyops/foreman/internal/data/db"
)

// RunStore implements run.Store using SQLite.
type RunStore struct {
	db *db.DB
}

var _ run.Store = (*RunStore)(nil)

// NewRunStore creates a new SQLite-backed run store.
func NewRunStore(db *db.DB) *RunStore {
	return &RunStore{db: db}
}

// Create records the start of a run.
func (s *RunStore) Create(ctx context.Context, r run.Run) error {
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now().UTC()
	}
	if r.Status == "" {
		r.Status = run.StatusRunning
	}

	err := s.db.Queries().CreateRun(ctx, db.CreateRunParams{
		ID:        r.ID,
		SessionID: r.SessionID,
		Source:    string(r.Source),
		Message:   r.Message,
		Status:    string(r.Status),
		StartedAt: r.StartedAt.UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// Finish records the outcome of a run.
func (s *RunStore) Finish(ctx context.Context, id string, out run.Outcome) error {
	err := s.db.Queries().FinishRun(ctx, db.FinishRunParams{
		Status:        string(out.Status),
		Response:      out.Response,
		Error:         out.Error,
		TasksPlanned:  int64(out.TasksPlanned),
		TasksExecuted: int64(out.TasksExecuted),
		TasksFailed:   int64(out.TasksFailed),
		Replans:       int64(out.Replans),
		FinishedAt:    time.Now().UTC().UnixNano(),
		ID:            id,
	})
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// AppendLog records a notable event during a run.
func (s *RunStore) AppendLog(ctx context.Context, runID, level, message string) error {
	err := s.db.Queries().CreateRunLog(ctx, db.CreateRunLogParams{
		RunID:     runID,
		Level:     level,
		Message:   message,
		CreatedAt: time.Now().UTC().UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("append run log: %w", err)
	}
	return nil
}

// AppendExecution records a task execution under a run.
func (s *RunStore) AppendExecution(ctx context.Context, runID string, exec plan.Execution) error {
	success := int64(0)
	if exec.Success {
		success = 1
	}
	err := s.db.Queries().CreateRunExecution(ctx, db.CreateRunExecutionParams{
		RunID:        runID,
		TaskID:       exec.TaskID,
		Tool:         exec.Tool,
		Input:        exec.Input,
		Output:       string(exec.Output),
		Success:      success,
		ErrorMessage: exec.ErrorMessage,
		StartedAt:    exec.StartedAt.UnixNano(),
		CompletedAt:  exec.CompletedAt.UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("append run execution: %w", err)
	}
	return nil
}

// AppendPlan records an accepted plan generation under a run.
func (s *RunStore) AppendPlan(ctx context.Context, runID string, rec run.PlanRecord) error {
	tasks, err := json.Marshal(rec.Tasks)
	if err != nil {
		return fmt.Errorf("encode plan tasks: %w", err)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	err = s.db.Queries().CreateRunPlan(ctx, db.CreateRunPlanParams{
		RunID:      runID,
		Generation: int64(rec.Generation),
		Reasoning:  rec.Reasoning,
		Tasks:      string(tasks),
		CreatedAt:  rec.CreatedAt.UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("append run plan: %w", err)
	}
	return nil
}

// Get returns a run with its full audit trail.
func (s *RunStore) Get(ctx context.Context, id string) (run.Detail, error) {
	row, err := s.db.Queries().GetRun(ctx, id)
	if err != nil {
		if IsNotFoundError(err) {
			return run.Detail{}, run.ErrNotFound
		}
		return run.Detail{}, fmt.Errorf("get run: %w", err)
	}

	detail := run.Detail{Run: rowToRun(row)}

	planRows, err := s.db.Queries().ListRunPlans(ctx, id)
	if err != nil {
		return run.Detail{}, fmt.Errorf("list run plans: %w", err)
	}
	for _, p := range planRows {
		var tasks []plan.Task
		if err := json.Unmarshal([]byte(p.Tasks), &tasks); err != nil {
			return run.Detail{}, fmt.Errorf("decode plan tasks: %w", err)
		}
		detail.Plans = append(detail.Plans, run.PlanRecord{
			Generation: int(p.Generation),
			Reasoning:  p.Reasoning,
			Tasks:      tasks,
			CreatedAt:  time.Unix(0, p.CreatedAt).UTC(),
		})
	}

	execRows, err := s.db.Queries().ListRunExecutions(ctx, id)
	if err != nil {
		return run.Detail{}, fmt.Errorf("list run executions: %w", err)
	}
	for _, e := range execRows {
		exec := plan.Execution{
			TaskID:       e.TaskID,
			Tool:         e.Tool,
			Input:        e.Input,
			Success:      e.Success != 0,
			ErrorMessage: e.ErrorMessage,
			StartedAt:    time.Unix(0, e.StartedAt).UTC(),
			CompletedAt:  time.Unix(0, e.CompletedAt).UTC(),
		}
		if e.Output != "" {
			exec.Output = json.RawMessage(e.Output)
		}
		detail.Executions = append(detail.Executions, exec)
	}

	logRows, err := s.db.Queries().ListRunLogs(ctx, id)
	if err != nil {
		return run.Detail{}, fmt.Errorf("list run logs: %w", err)
	}
	for _, l := range logRows {
		detail.Logs = append(detail.Logs, run.LogEntry{
			Level:     l.Level,
			Message:   l.Message,
			CreatedAt: time.Unix(0, l.CreatedAt).UTC(),
		})
	}

	return detail, nil
}

// List returns the most recent runs, newest first.
func (s *RunStore) List(ctx context.Context, limit int) ([]run.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Queries().ListRuns(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	runs := make([]run.Run, 0, len(rows))
	for _, row := range rows {
		runs = append(runs, rowToRun(row))
	}
	return runs, nil
}

// ListBySession returns a session's most recent runs, newest first.
func (s *RunStore) ListBySession(ctx context.Context, sessionID string, limit int) ([]run.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Queries().ListRunsBySession(ctx, db.ListRunsBySessionParams{
		SessionID: sessionID,
		Limit:     int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("list runs for session %q: %w", sessionID, err)
	}
	runs := make([]run.Run, 0, len(rows))
	for _, row := range rows {
		runs = append(runs, rowToRun(row))
	}
	return runs, nil
}

// DeleteBefore prunes runs started before cutoff, cascading their audit rows.
func (s *RunStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := s.db.Queries().DeleteRunsBefore(ctx, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("delete runs: %w", err)
	}
	return n, nil
}

func rowToRun(row db.Run) run.Run {
	r := run.Run{
		ID:            row.ID,
		SessionID:     row.SessionID,
		Source:        run.Source(row.Source),
		Message:       row.Message,
		Status:        run.Status(row.Status),
		Response:      row.Response,
		Error:         row.Error,
		TasksPlanned:  int(row.TasksPlanned),
		TasksExecuted: int(row.TasksExecuted),
		TasksFailed:   int(row.TasksFailed),
		Replans:       int(row.Replans),
		StartedAt:     time.Unix(0, row.StartedAt).UTC(),
	}
	if row.FinishedAt.Valid {
		t := time.Unix(0, row.FinishedAt.Int64).UTC()
		r.FinishedAt = &t
	}
	return r
}
