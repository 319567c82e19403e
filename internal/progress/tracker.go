// Package progress tracks collection job state in memory so API callers
// can poll a job they triggered.
package progress

import (
	"maps"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gyeongnam-biz/collector-cli/internal/model"
)

// Tracker is a mutex-guarded registry of collection jobs. Jobs live in
// memory only; restarting the process forgets them.
type Tracker struct {
	mu   sync.Mutex
	jobs map[string]*model.CollectionJob
	now  func() time.Time
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		jobs: make(map[string]*model.CollectionJob),
		now:  time.Now,
	}
}

// Start registers a new running job with the given number of steps.
// Restarting an existing id resets it.
func (t *Tracker) Start(jobID string, totalSteps int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.jobs[jobID] = &model.CollectionJob{
		ID:         jobID,
		Status:     model.JobRunning,
		TotalSteps: totalSteps,
		StartedAt:  t.now(),
	}
}

// UpdateStep records step progress. Unknown job ids are logged and
// ignored so callers never have to care whether tracking is active.
func (t *Tracker) UpdateStep(jobID string, step int, message string, details map[string]any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[jobID]
	if !ok {
		zap.L().Warn("progress: update for unknown job", zap.String("job_id", jobID))
		return
	}

	job.CurrentStep = step
	job.Message = message
	if job.TotalSteps > 0 {
		job.Percent = step * 100 / job.TotalSteps
	}
	job.Steps = append(job.Steps, model.StepEvent{
		Step:      step,
		Message:   message,
		Timestamp: t.now(),
		Details:   details,
	})
}

// Complete marks a job finished and attaches its result.
func (t *Tracker) Complete(jobID string, result *model.CollectionStats) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[jobID]
	if !ok {
		zap.L().Warn("progress: complete for unknown job", zap.String("job_id", jobID))
		return
	}

	now := t.now()
	job.Status = model.JobCompleted
	job.CurrentStep = job.TotalSteps
	job.Percent = 100
	job.Result = result
	job.EndedAt = &now
}

// Fail marks a job failed with an error message.
func (t *Tracker) Fail(jobID string, errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[jobID]
	if !ok {
		zap.L().Warn("progress: fail for unknown job", zap.String("job_id", jobID))
		return
	}

	now := t.now()
	job.Status = model.JobFailed
	job.Error = errMsg
	job.EndedAt = &now
}

// Get returns a snapshot of a job. Mutating the snapshot does not affect
// the tracked job.
func (t *Tracker) Get(jobID string) (model.CollectionJob, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[jobID]
	if !ok {
		return model.CollectionJob{}, false
	}

	snapshot := *job
	snapshot.Steps = make([]model.StepEvent, len(job.Steps))
	for i, ev := range job.Steps {
		if ev.Details != nil {
			ev.Details = maps.Clone(ev.Details)
		}
		snapshot.Steps[i] = ev
	}
	return snapshot, true
}

// Cleanup drops finished jobs that started more than maxAge ago and
// returns how many were removed. Running jobs are never dropped.
func (t *Tracker) Cleanup(maxAge time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-maxAge)
	removed := 0
	for id, job := range t.jobs {
		if job.Status == model.JobRunning {
			continue
		}
		if job.StartedAt.Before(cutoff) {
			delete(t.jobs, id)
			removed++
		}
	}
	if removed > 0 {
		zap.L().Debug("progress: cleaned up finished jobs", zap.Int("removed", removed))
	}
	return removed
}
