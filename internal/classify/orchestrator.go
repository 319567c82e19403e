package classify

import (
	"context"

	"go.uber.org/zap"

	"github.com/gyeongnam-biz/collector-cli/internal/config"
	"github.com/gyeongnam-biz/collector-cli/internal/model"
	"github.com/gyeongnam-biz/collector-cli/internal/region"
	"github.com/gyeongnam-biz/collector-cli/internal/store"
)

// Outcome counts what happened to a batch of announcements. Failed rows
// stay pending in the store and are retried on the next run.
type Outcome struct {
	Keyword int
	AI      int
	Failed  int
}

// Orchestrator runs the two classification tiers over pending
// announcements and writes accepted results back to the store.
type Orchestrator struct {
	keyword *region.Classifier
	ai      *AIClassifier
	store   store.Store
	cfg     config.ClassifyConfig
}

// NewOrchestrator wires the two tiers. ai may be nil when no Gemini key is
// configured; keyword misses then simply stay pending.
func NewOrchestrator(keyword *region.Classifier, ai *AIClassifier, st store.Store, cfg config.ClassifyConfig) *Orchestrator {
	return &Orchestrator{keyword: keyword, ai: ai, store: st, cfg: cfg}
}

// Run classifies a batch. The keyword tier handles everything it can settle
// at or above its threshold; the remainder goes to the AI tier in one
// ClassifyBatch call. Store writes are per-announcement so one failed write
// cannot block the rest of the batch.
func (o *Orchestrator) Run(ctx context.Context, anns []model.Announcement) Outcome {
	var out Outcome
	var remaining []model.Announcement

	for _, a := range anns {
		res := o.keyword.ClassifyAnnouncement(a)
		if res.RegionCode == nil || res.Confidence < o.cfg.RunKeywordThreshold {
			remaining = append(remaining, a)
			continue
		}
		if o.persist(ctx, a.ExternalID, res) {
			out.Keyword++
		} else {
			out.Failed++
		}
	}

	if len(remaining) == 0 {
		return out
	}
	if o.ai == nil {
		out.Failed += len(remaining)
		zap.L().Info("classify: no ai tier configured, leaving announcements pending",
			zap.Int("count", len(remaining)))
		return out
	}

	results := o.ai.ClassifyBatch(ctx, remaining)
	for i, res := range results {
		if res.RegionCode == nil || res.Confidence < o.cfg.RunAIThreshold {
			out.Failed++
			continue
		}
		if o.persist(ctx, remaining[i].ExternalID, res) {
			out.AI++
		} else {
			out.Failed++
		}
	}

	zap.L().Info("classify: batch done",
		zap.Int("total", len(anns)),
		zap.Int("keyword", out.Keyword),
		zap.Int("ai", out.AI),
		zap.Int("failed", out.Failed),
	)
	return out
}

// ClassifyOne classifies a single announcement without touching the store.
// It uses stricter thresholds than Run and always produces a result: below
// both thresholds the announcement defaults to nationwide with nominal
// confidence.
func (o *Orchestrator) ClassifyOne(ctx context.Context, a model.Announcement) model.ClassificationResult {
	res := o.keyword.ClassifyAnnouncement(a)
	if res.RegionCode != nil && res.Confidence >= o.cfg.ItemKeywordThreshold {
		return res
	}

	if o.ai != nil {
		aiResults := o.ai.ClassifyBatch(ctx, []model.Announcement{a})
		if len(aiResults) == 1 {
			aiRes := aiResults[0]
			if aiRes.RegionCode != nil && aiRes.Confidence >= o.cfg.ItemAIThreshold {
				return aiRes
			}
		}
	}

	all := region.CodeAll
	return model.ClassificationResult{
		RegionCode: &all,
		Confidence: 0.1,
		Method:     model.MethodDefault,
		Reason:     "below classification thresholds",
	}
}

func (o *Orchestrator) persist(ctx context.Context, externalID string, res model.ClassificationResult) bool {
	if err := o.store.UpdateClassification(ctx, externalID, res); err != nil {
		zap.L().Error("classify: persist failed",
			zap.String("external_id", externalID), zap.Error(err))
		return false
	}
	return true
}
