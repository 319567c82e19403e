package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/gyeongnam-biz/collector-cli/internal/classify"
	"github.com/gyeongnam-biz/collector-cli/internal/collector"
	"github.com/gyeongnam-biz/collector-cli/internal/feed"
	"github.com/gyeongnam-biz/collector-cli/internal/progress"
	"github.com/gyeongnam-biz/collector-cli/internal/region"
	"github.com/gyeongnam-biz/collector-cli/internal/store"
	"github.com/gyeongnam-biz/collector-cli/pkg/gemini"
)

// collectorEnv holds the wired components shared by the collect, classify,
// serve, and stats commands.
type collectorEnv struct {
	Store        store.Store
	Taxonomy     *region.Taxonomy
	Orchestrator *classify.Orchestrator
	AI           *classify.AIClassifier // nil without a Gemini key
	Collector    *collector.Collector
	Runner       *collector.Runner
	Tracker      *progress.Tracker
}

// Close releases resources held by the environment.
func (e *collectorEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv sets up the store, classifiers, and collector. Callers should
// defer env.Close().
func initEnv(ctx context.Context) (*collectorEnv, error) {
	taxonomy := region.NewTaxonomy()

	st, err := store.Open(ctx, cfg.Store, taxonomy)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	var ai *classify.AIClassifier
	if cfg.Gemini.Key != "" {
		client, err := gemini.NewClient(ctx, cfg.Gemini.Key)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		ai = classify.NewAIClassifier(client, cfg.Gemini.Model,
			cfg.Gemini.BatchSize, cfg.Gemini.BatchDelaySecs, taxonomy)
	} else {
		zap.L().Warn("BIZCOLLECT_GEMINI_KEY not set, AI classification tier disabled")
	}

	orchestrator := classify.NewOrchestrator(region.NewClassifier(taxonomy), ai, st, cfg.Classify)
	tracker := progress.NewTracker()
	coll := collector.New(feed.NewClient(cfg.Feed), orchestrator, st, tracker, *cfg)

	return &collectorEnv{
		Store:        st,
		Taxonomy:     taxonomy,
		Orchestrator: orchestrator,
		AI:           ai,
		Collector:    coll,
		Runner:       collector.NewRunner(coll, cfg.Collect.MaxConcurrent),
		Tracker:      tracker,
	}, nil
}
