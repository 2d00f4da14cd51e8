package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus is the lifecycle state of a script run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// ScriptRun records one execution of a user script against a trace.
type ScriptRun struct {
	RunID        string     `json:"runId" db:"run_id"`
	TraceID      uuid.UUID  `json:"traceId" db:"trace_id"`
	AnalysisName string     `json:"analysisName" db:"analysis_name"`
	Source       string     `json:"-" db:"source"`
	Status       RunStatus  `json:"status" db:"status"`
	Error        string     `json:"error,omitempty" db:"error"`
	EnqueuedAt   time.Time  `json:"enqueuedAt" db:"enqueued_at"`
	StartedAt    *time.Time `json:"startedAt,omitempty" db:"started_at"`
	FinishedAt   *time.Time `json:"finishedAt,omitempty" db:"finished_at"`
}

// ScriptSubmission is the payload clients send to run a script.
type ScriptSubmission struct {
	AnalysisName string `json:"analysisName" validate:"required,min=1,max=255"`
	Source       string `json:"source" validate:"required,min=1"`
	Background   bool   `json:"background"`
}

// ScriptRunFilter represents filter options for querying runs
type ScriptRunFilter struct {
	TraceID      *uuid.UUID
	AnalysisName *string
	Status       *RunStatus
}
