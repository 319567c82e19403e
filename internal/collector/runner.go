package collector

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Runner launches collection runs in the background with a concurrency cap,
// so the HTTP trigger endpoint can answer immediately with a job id.
type Runner struct {
	collector *Collector
	sem       *semaphore.Weighted
}

// NewRunner creates a runner allowing at most maxConcurrent simultaneous
// collections.
func NewRunner(c *Collector, maxConcurrent int) *Runner {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Runner{
		collector: c,
		sem:       semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

// Trigger starts an async collection and returns its job id. It fails fast
// when the concurrency cap is reached instead of queueing.
func (r *Runner) Trigger(ctx context.Context, count int) (string, error) {
	if !r.sem.TryAcquire(1) {
		return "", eris.New("collector: too many concurrent collections")
	}

	jobID := uuid.New().String()
	zap.L().Info("collector: triggered", zap.String("job_id", jobID), zap.Int("count", count))

	go func() {
		defer r.sem.Release(1)
		// Detached from the request context: an HTTP client disconnect
		// must not abort a running collection.
		r.collector.Run(context.WithoutCancel(ctx), count, jobID)
	}()

	return jobID, nil
}
