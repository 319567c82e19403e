// Package collector orchestrates a collection run: fetch the feed, drop
// duplicates, persist what is new, then classify the pending backlog.
package collector

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gyeongnam-biz/collector-cli/internal/classify"
	"github.com/gyeongnam-biz/collector-cli/internal/config"
	"github.com/gyeongnam-biz/collector-cli/internal/feed"
	"github.com/gyeongnam-biz/collector-cli/internal/model"
	"github.com/gyeongnam-biz/collector-cli/internal/progress"
	"github.com/gyeongnam-biz/collector-cli/internal/store"
)

const totalSteps = 4

// Fetcher is the feed dependency, satisfied by feed.Client.
type Fetcher interface {
	Fetch(ctx context.Context, count int, hashtags string) []model.Announcement
}

// Classifier is the classification dependency, satisfied by
// classify.Orchestrator.
type Classifier interface {
	Run(ctx context.Context, anns []model.Announcement) classify.Outcome
}

// Collector runs the four-step collection pipeline.
type Collector struct {
	fetcher    Fetcher
	classifier Classifier
	store      store.Store
	tracker    *progress.Tracker
	cfg        config.Config
	now        func() time.Time
}

// New wires a collector. tracker may be nil for one-off CLI runs that have
// no API poller.
func New(fetcher Fetcher, classifier Classifier, st store.Store, tracker *progress.Tracker, cfg config.Config) *Collector {
	return &Collector{
		fetcher:    fetcher,
		classifier: classifier,
		store:      st,
		tracker:    tracker,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Run executes one collection. It never panics outward: any panic is
// captured, the job is marked failed, and the stats collected so far are
// returned. jobID may be empty when no progress tracking is wanted.
func (c *Collector) Run(ctx context.Context, count int, jobID string) (stats *model.CollectionStats) {
	stats = &model.CollectionStats{StartedAt: c.now()}
	defer func() {
		stats.Duration = c.now().Sub(stats.StartedAt)
		if r := recover(); r != nil {
			msg := fmt.Sprintf("collection panicked: %v", r)
			zap.L().Error("collector: run panicked", zap.String("job_id", jobID), zap.Any("panic", r))
			stats.Errors = append(stats.Errors, msg)
			c.fail(jobID, msg)
		}
	}()

	if c.tracker != nil && jobID != "" {
		c.tracker.Start(jobID, totalSteps)
	}

	// Step 1: fetch.
	c.step(jobID, 1, "피드 수집 중", nil)
	anns := c.fetcher.Fetch(ctx, count, c.cfg.Feed.Hashtag)
	stats.TotalFetched = len(anns)
	if len(anns) == 0 {
		zap.L().Info("collector: feed returned nothing", zap.String("job_id", jobID))
		c.complete(jobID, stats)
		return stats
	}

	// Step 2: dedup against the store.
	c.step(jobID, 2, "중복 제거 중", map[string]any{"fetched": len(anns)})
	existing, err := c.store.GetExistingIDs(ctx)
	if err != nil {
		msg := "load existing ids: " + err.Error()
		zap.L().Error("collector: dedup failed", zap.String("job_id", jobID), zap.Error(err))
		stats.Errors = append(stats.Errors, msg)
		c.fail(jobID, msg)
		return stats
	}
	fresh := feed.FilterNew(anns, existing)
	stats.NewAnnouncements = len(fresh)
	if len(fresh) == 0 {
		zap.L().Info("collector: all announcements already known",
			zap.String("job_id", jobID), zap.Int("fetched", len(anns)))
		c.complete(jobID, stats)
		return stats
	}

	// Step 3: validate and insert.
	c.step(jobID, 3, "신규 공고 저장 중", map[string]any{"new": len(fresh)})
	valid := fresh[:0]
	for _, a := range fresh {
		if feed.Validate(a) {
			valid = append(valid, a)
		}
	}
	inserted, err := c.store.BulkInsert(ctx, valid)
	stats.Inserted = inserted
	if err != nil {
		msg := "bulk insert: " + err.Error()
		stats.Errors = append(stats.Errors, msg)
		c.fail(jobID, msg)
		return stats
	}
	if inserted == 0 {
		msg := fmt.Sprintf("no rows inserted from %d new announcements", len(fresh))
		zap.L().Error("collector: insert step produced nothing", zap.String("job_id", jobID))
		stats.Errors = append(stats.Errors, msg)
		c.fail(jobID, msg)
		return stats
	}

	// Step 4: classify the pending backlog, which includes rows left over
	// from earlier runs.
	c.step(jobID, 4, "지역 분류 중", map[string]any{"inserted": inserted})
	backlog, err := c.store.GetUnclassified(ctx, c.cfg.Classify.BacklogLimit)
	if err != nil {
		msg := "load backlog: " + err.Error()
		zap.L().Error("collector: backlog load failed", zap.String("job_id", jobID), zap.Error(err))
		stats.Errors = append(stats.Errors, msg)
		c.fail(jobID, msg)
		return stats
	}
	outcome := c.classifier.Run(ctx, backlog)
	stats.KeywordClassified = outcome.Keyword
	stats.AIClassified = outcome.AI
	stats.ClassificationFailed = outcome.Failed

	zap.L().Info("collector: run complete",
		zap.String("job_id", jobID),
		zap.Int("fetched", stats.TotalFetched),
		zap.Int("new", stats.NewAnnouncements),
		zap.Int("inserted", stats.Inserted),
		zap.Int("keyword_classified", stats.KeywordClassified),
		zap.Int("ai_classified", stats.AIClassified),
		zap.Int("classification_failed", stats.ClassificationFailed),
		zap.Duration("duration", c.now().Sub(stats.StartedAt)),
	)
	c.complete(jobID, stats)
	return stats
}

func (c *Collector) step(jobID string, step int, message string, details map[string]any) {
	if c.tracker != nil && jobID != "" {
		c.tracker.UpdateStep(jobID, step, message, details)
	}
}

func (c *Collector) complete(jobID string, stats *model.CollectionStats) {
	if c.tracker != nil && jobID != "" {
		c.tracker.Complete(jobID, stats)
	}
}

func (c *Collector) fail(jobID, msg string) {
	if c.tracker != nil && jobID != "" {
		c.tracker.Fail(jobID, msg)
	}
}
