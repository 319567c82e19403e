// Package store persists announcements and their classification state.
package store

import (
	"context"

	"github.com/gyeongnam-biz/collector-cli/internal/model"
)

// Store defines the persistence interface for the collection pipeline.
type Store interface {
	// Announcements
	GetExistingIDs(ctx context.Context) (map[string]struct{}, error)
	BulkInsert(ctx context.Context, anns []model.Announcement) (int, error)
	GetAnnouncement(ctx context.Context, externalID string) (*model.Announcement, error)
	GetUnclassified(ctx context.Context, limit int) ([]model.Announcement, error)
	UpdateClassification(ctx context.Context, externalID string, result model.ClassificationResult) error

	// Reporting
	GetStats(ctx context.Context) (*model.ClassificationStats, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
