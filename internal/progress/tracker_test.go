package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyeongnam-biz/collector-cli/internal/model"
)

func TestTracker_Lifecycle(t *testing.T) {
	tr := NewTracker()
	tr.Start("job-1", 4)

	job, ok := tr.Get("job-1")
	require.True(t, ok)
	assert.Equal(t, model.JobRunning, job.Status)
	assert.Zero(t, job.Percent)

	tr.UpdateStep("job-1", 1, "피드 수집", map[string]any{"fetched": 50})
	tr.UpdateStep("job-1", 2, "중복 제거", nil)

	job, ok = tr.Get("job-1")
	require.True(t, ok)
	assert.Equal(t, 2, job.CurrentStep)
	assert.Equal(t, 50, job.Percent)
	assert.Equal(t, "중복 제거", job.Message)
	require.Len(t, job.Steps, 2)
	assert.Equal(t, map[string]any{"fetched": 50}, job.Steps[0].Details)

	tr.Complete("job-1", &model.CollectionStats{TotalFetched: 50, Inserted: 10})

	job, ok = tr.Get("job-1")
	require.True(t, ok)
	assert.Equal(t, model.JobCompleted, job.Status)
	assert.Equal(t, 100, job.Percent)
	assert.Equal(t, 4, job.CurrentStep)
	require.NotNil(t, job.Result)
	assert.Equal(t, 10, job.Result.Inserted)
	require.NotNil(t, job.EndedAt)
}

func TestTracker_PercentRoundsDown(t *testing.T) {
	tr := NewTracker()
	tr.Start("job-1", 3)
	tr.UpdateStep("job-1", 1, "1단계", nil)

	job, _ := tr.Get("job-1")
	assert.Equal(t, 33, job.Percent)

	tr.UpdateStep("job-1", 2, "2단계", nil)
	job, _ = tr.Get("job-1")
	assert.Equal(t, 66, job.Percent)
}

func TestTracker_Fail(t *testing.T) {
	tr := NewTracker()
	tr.Start("job-1", 4)
	tr.Fail("job-1", "feed returned nothing insertable")

	job, ok := tr.Get("job-1")
	require.True(t, ok)
	assert.Equal(t, model.JobFailed, job.Status)
	assert.Equal(t, "feed returned nothing insertable", job.Error)
	require.NotNil(t, job.EndedAt)
}

func TestTracker_UnknownJobOpsAreNoops(t *testing.T) {
	tr := NewTracker()

	tr.UpdateStep("ghost", 1, "x", nil)
	tr.Complete("ghost", nil)
	tr.Fail("ghost", "x")

	_, ok := tr.Get("ghost")
	assert.False(t, ok)
}

func TestTracker_GetReturnsSnapshot(t *testing.T) {
	tr := NewTracker()
	tr.Start("job-1", 4)
	tr.UpdateStep("job-1", 1, "1단계", nil)

	job, _ := tr.Get("job-1")
	job.Steps[0].Message = "변조"
	job.Message = "변조"

	fresh, _ := tr.Get("job-1")
	assert.Equal(t, "1단계", fresh.Steps[0].Message)
	assert.Equal(t, "1단계", fresh.Message)
}

func TestTracker_SnapshotDetailsAreIsolated(t *testing.T) {
	tr := NewTracker()
	tr.Start("job-1", 4)
	tr.UpdateStep("job-1", 1, "1단계", map[string]any{"fetched": 50})

	job, _ := tr.Get("job-1")
	job.Steps[0].Details["fetched"] = -1

	fresh, _ := tr.Get("job-1")
	assert.Equal(t, 50, fresh.Steps[0].Details["fetched"])
}

func TestTracker_CleanupDropsOnlyOldFinishedJobs(t *testing.T) {
	tr := NewTracker()
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return current }

	tr.Start("old-done", 4)
	tr.Complete("old-done", nil)
	tr.Start("old-running", 4)

	current = current.Add(2 * time.Hour)
	tr.Start("fresh-done", 4)
	tr.Complete("fresh-done", nil)

	removed := tr.Cleanup(time.Hour)
	assert.Equal(t, 1, removed)

	_, ok := tr.Get("old-done")
	assert.False(t, ok)
	_, ok = tr.Get("old-running")
	assert.True(t, ok)
	_, ok = tr.Get("fresh-done")
	assert.True(t, ok)
}
