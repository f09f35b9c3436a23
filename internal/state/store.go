// Package state provides persistent run history for the pipeline: runs, step
// runs, and quality-check outcomes, stored in SQLite with goose migrations.
package state

import "time"

// RunStatus represents the lifecycle state of a pipeline run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// StepStatus represents the outcome of a single materialization step.
type StepStatus string

const (
	StepStatusSuccess StepStatus = "success"
	StepStatusFailed  StepStatus = "failed"
	StepStatusSkipped StepStatus = "skipped"
)

// Run is one pipeline execution.
type Run struct {
	ID          string
	Environment string
	Status      RunStatus
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
}

// StepRun is one table materialization within a run.
type StepRun struct {
	ID         string
	RunID      string
	Table      string
	Layer      string
	Status     StepStatus
	Rows       int64
	DurationMS int64
	Error      string
}

// QualityCheck is one quality-gate rule evaluation within a run.
type QualityCheck struct {
	ID         string
	RunID      string
	Layer      string
	Table      string
	Rule       string
	Violations int64
}

// Passed reports whether the check held.
func (c QualityCheck) Passed() bool { return c.Violations == 0 }

// Store is the persistence interface for run history.
type Store interface {
	Open(path string) error
	Close() error
	Migrate() error

	CreateRun(environment string) (*Run, error)
	CompleteRun(id string, status RunStatus, errMsg string) error
	GetRun(id string) (*Run, error)
	ListRuns(limit int) ([]*Run, error)

	RecordStepRun(sr *StepRun) error
	ListStepRuns(runID string) ([]*StepRun, error)

	RecordQualityCheck(qc *QualityCheck) error
	ListQualityChecks(runID string) ([]*QualityCheck, error)
}
