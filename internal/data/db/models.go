package db

import "database/sql"

// Timestamps are stored as Unix nanoseconds.

type Session struct {
	ID        string
	Snapshot  string
	Version   int64
	CreatedAt int64
	UpdatedAt int64
}

type Run struct {
	ID            string
	SessionID     string
	Source        string
	Message       string
	Status        string
	Response      string
	Error         string
	TasksPlanned  int64
	TasksExecuted int64
	TasksFailed   int64
	Replans       int64
	StartedAt     int64
	FinishedAt    sql.NullInt64
}

type RunLog struct {
	ID        int64
	RunID     string
	Level     string
	Message   string
	CreatedAt int64
}

type RunExecution struct {
	ID           int64
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

type RunPlan struct {
	ID         int64
	RunID      string
	Generation int64
	Reasoning  string
	Tasks      string
	CreatedAt  int64
}
