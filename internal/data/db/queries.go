package db

import (
	"context"
	"database/sql"
)

// DBTX is the subset of database/sql shared by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries runs typed statements against a connection or transaction.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries bound to the given transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const createSession = `
INSERT INTO sessions (id, snapshot, version, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
`

type CreateSessionParams struct {
	ID        string
	Snapshot  string
	Version   int64
	CreatedAt int64
	UpdatedAt int64
}

func (q *Queries) CreateSession(ctx context.Context, arg CreateSessionParams) error {
	_, err := q.db.ExecContext(ctx, createSession,
		arg.ID, arg.Snapshot, arg.Version, arg.CreatedAt, arg.UpdatedAt)
	return err
}

const getSession = `
SELECT id, snapshot, version, created_at, updated_at
FROM sessions WHERE id = ?
`

func (q *Queries) GetSession(ctx context.Context, id string) (Session, error) {
	row := q.db.QueryRowContext(ctx, getSession, id)
	var s Session
	err := row.Scan(&s.ID, &s.Snapshot, &s.Version, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

const updateSession = `
UPDATE sessions
SET snapshot = ?, version = ?, updated_at = ?
WHERE id = ? AND version = ?
`

type UpdateSessionParams struct {
	Snapshot    string
	Version     int64
	UpdatedAt   int64
	ID          string
	PrevVersion int64
}

// UpdateSession writes a new snapshot if the stored version still matches
// PrevVersion. Returns the number of rows updated; zero means the session
// changed underneath the caller.
func (q *Queries) UpdateSession(ctx context.Context, arg UpdateSessionParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateSession,
		arg.Snapshot, arg.Version, arg.UpdatedAt, arg.ID, arg.PrevVersion)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listSessionIDs = `
SELECT id FROM sessions ORDER BY updated_at DESC
`

func (q *Queries) ListSessionIDs(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listSessionIDs)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const deleteSession = `
DELETE FROM sessions WHERE id = ?
`

func (q *Queries) DeleteSession(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteSession, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const createRun = `
INSERT INTO runs (id, session_id, source, message, status, started_at)
VALUES (?, ?, ?, ?, ?, ?)
`

type CreateRunParams struct {
	ID        string
	SessionID string
	Source    string
	Message   string
	Status    string
	StartedAt int64
}

func (q *Queries) CreateRun(ctx context.Context, arg CreateRunParams) error {
	_, err := q.db.ExecContext(ctx, createRun,
		arg.ID, arg.SessionID, arg.Source, arg.Message, arg.Status, arg.StartedAt)
	return err
}

const finishRun = `
UPDATE runs
SET status = ?, response = ?, error = ?,
    tasks_planned = ?, tasks_executed = ?, tasks_failed = ?, replans = ?,
    finished_at = ?
WHERE id = ?
`

type FinishRunParams struct {
	Status        string
	Response      string
	Error         string
	TasksPlanned  int64
	TasksExecuted int64
	TasksFailed   int64
	Replans       int64
	FinishedAt    int64
	ID            string
}

func (q *Queries) FinishRun(ctx context.Context, arg FinishRunParams) error {
	_, err := q.db.ExecContext(ctx, finishRun,
		arg.Status, arg.Response, arg.Error,
		arg.TasksPlanned, arg.TasksExecuted, arg.TasksFailed, arg.Replans,
		arg.FinishedAt, arg.ID)
	return err
}

const runColumns = `id, session_id, source, message, status, response, error,
tasks_planned, tasks_executed, tasks_failed, replans, started_at, finished_at`

func scanRun(row interface{ Scan(...any) error }) (Run, error) {
	var r Run
	err := row.Scan(&r.ID, &r.SessionID, &r.Source, &r.Message, &r.Status, &r.Response, &r.Error,
		&r.TasksPlanned, &r.TasksExecuted, &r.TasksFailed, &r.Replans, &r.StartedAt, &r.FinishedAt)
	return r, err
}

const getRun = `
SELECT ` + runColumns + `
FROM runs WHERE id = ?
`

func (q *Queries) GetRun(ctx context.Context, id string) (Run, error) {
	return scanRun(q.db.QueryRowContext(ctx, getRun, id))
}

const listRuns = `
SELECT ` + runColumns + `
FROM runs
ORDER BY started_at DESC
LIMIT ?
`

func (q *Queries) ListRuns(ctx context.Context, limit int64) ([]Run, error) {
	rows, err := q.db.QueryContext(ctx, listRuns, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

const listRunsBySession = `
SELECT ` + runColumns + `
FROM runs
WHERE session_id = ?
ORDER BY started_at DESC
LIMIT ?
`

type ListRunsBySessionParams struct {
	SessionID string
	Limit     int64
}

func (q *Queries) ListRunsBySession(ctx context.Context, arg ListRunsBySessionParams) ([]Run, error) {
	rows, err := q.db.QueryContext(ctx, listRunsBySession, arg.SessionID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

const deleteRunsBefore = `
DELETE FROM runs WHERE started_at < ?
`

// DeleteRunsBefore removes runs started before the cutoff. Child rows go
// with them through ON DELETE CASCADE.
func (q *Queries) DeleteRunsBefore(ctx context.Context, cutoff int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteRunsBefore, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const createRunLog = `
INSERT INTO run_logs (run_id, level, message, created_at)
VALUES (?, ?, ?, ?)
`

type CreateRunLogParams struct {
	RunID     string
	Level     string
	Message   string
	CreatedAt int64
}

func (q *Queries) CreateRunLog(ctx context.Context, arg CreateRunLogParams) error {
	_, err := q.db.ExecContext(ctx, createRunLog,
		arg.RunID, arg.Level, arg.Message, arg.CreatedAt)
	return err
}

const listRunLogs = `
SELECT id, run_id, level, message, created_at
FROM run_logs WHERE run_id = ? ORDER BY id
`

func (q *Queries) ListRunLogs(ctx context.Context, runID string) ([]RunLog, error) {
	rows, err := q.db.QueryContext(ctx, listRunLogs, runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var logs []RunLog
	for rows.Next() {
		var l RunLog
		if err := rows.Scan(&l.ID, &l.RunID, &l.Level, &l.Message, &l.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

const createRunExecution = `
INSERT INTO run_executions (run_id, task_id, tool, input, output, success, error_message, started_at, completed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateRunExecutionParams struct {
	RunID        string
	TaskID       string
	Tool         string
	Input        string
	Output       string
	Success      int64
	ErrorMessage string
	StartedAt    int64
	CompletedAt  int64
}

func (q *Queries) CreateRunExecution(ctx context.Context, arg CreateRunExecutionParams) error {
	_, err := q.db.ExecContext(ctx, createRunExecution,
		arg.RunID, arg.TaskID, arg.Tool, arg.Input, arg.Output, arg.Success, arg.ErrorMessage, arg.StartedAt, arg.CompletedAt)
	return err
}

const listRunExecutions = `
SELECT id, run_id, task_id, tool, input, output, success, error_message, started_at, completed_at
FROM run_executions WHERE run_id = ? ORDER BY id
`

func (q *Queries) ListRunExecutions(ctx context.Context, runID string) ([]RunExecution, error) {
	rows, err := q.db.QueryContext(ctx, listRunExecutions, runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var execs []RunExecution
	for rows.Next() {
		var e RunExecution
		if err := rows.Scan(&e.ID, &e.RunID, &e.TaskID, &e.Tool, &e.Input, &e.Output, &e.Success, &e.ErrorMessage, &e.StartedAt, &e.CompletedAt); err != nil {
			return nil, err
		}
		execs = append(execs, e)
	}
	return execs, rows.Err()
}

const createRunPlan = `
INSERT INTO run_plans (run_id, generation, reasoning, tasks, created_at)
VALUES (?, ?, ?, ?, ?)
`

type CreateRunPlanParams struct {
	RunID      string
	Generation int64
	Reasoning  string
	Tasks      string
	CreatedAt  int64
}

func (q *Queries) CreateRunPlan(ctx context.Context, arg CreateRunPlanParams) error {
	_, err := q.db.ExecContext(ctx, createRunPlan,
		arg.RunID, arg.Generation, arg.Reasoning, arg.Tasks, arg.CreatedAt)
	return err
}

const listRunPlans = `
SELECT id, run_id, generation, reasoning, tasks, created_at
FROM run_plans WHERE run_id = ? ORDER BY id
`

func (q *Queries) ListRunPlans(ctx context.Context, runID string) ([]RunPlan, error) {
	rows, err := q.db.QueryContext(ctx, listRunPlans, runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var plans []RunPlan
	for rows.Next() {
		var p RunPlan
		if err := rows.Scan(&p.ID, &p.RunID, &p.Generation, &p.Reasoning, &p.Tasks, &p.CreatedAt); err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}
