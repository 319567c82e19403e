package model

import "time"

// JobStatus represents the lifecycle state of a collection job.
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// StepEvent is one entry in a job's progress history.
type StepEvent struct {
	Step      int            `json:"step"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	Details   map[string]any `json:"details,omitempty"`
}

// CollectionJob is the in-memory progress state of one collection run. It is
// created by the progress tracker, mutated only by the collection
// orchestrator, and discarded by the cleanup sweep or process restart.
type CollectionJob struct {
	ID          string           `json:"id"`
	Status      JobStatus        `json:"status"`
	CurrentStep int              `json:"current_step"`
	TotalSteps  int              `json:"total_steps"`
	Percent     int              `json:"percent"`
	Message     string           `json:"message"`
	StartedAt   time.Time        `json:"started_at"`
	EndedAt     *time.Time       `json:"ended_at,omitempty"`
	Steps       []StepEvent      `json:"steps"`
	Result      *CollectionStats `json:"result,omitempty"`
	Error       string           `json:"error,omitempty"`
}
