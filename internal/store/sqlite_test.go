package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyeongnam-biz/collector-cli/internal/model"
	"github.com/gyeongnam-biz/collector-cli/internal/region"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath, region.NewTaxonomy())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testAnnouncement(id string) model.Announcement {
	return model.Announcement{
		ExternalID: id,
		Title:      "공고 " + id,
		IssuingOrg: "창원시",
		FetchedAt:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Status:     model.ClassificationPending,
	}
}

func TestSQLiteStore_InsertAndDedup(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	inserted, err := st.BulkInsert(ctx, []model.Announcement{
		testAnnouncement("PBLN_1"),
		testAnnouncement("PBLN_2"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	// Re-inserting the same ids is a no-op.
	inserted, err = st.BulkInsert(ctx, []model.Announcement{
		testAnnouncement("PBLN_1"),
		testAnnouncement("PBLN_3"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	ids, err := st.GetExistingIDs(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 3)
}

func TestSQLiteStore_MigrateSeedsRegions(t *testing.T) {
	st := newTestSQLiteStore(t)

	// Migrating twice must be idempotent.
	require.NoError(t, st.Migrate(context.Background()))

	var count int
	require.NoError(t, st.db.QueryRow(`SELECT COUNT(*) FROM regions`).Scan(&count))
	assert.Equal(t, 21, count)
}

func TestSQLiteStore_ClassificationRoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.BulkInsert(ctx, []model.Announcement{testAnnouncement("PBLN_1")})
	require.NoError(t, err)

	pending, err := st.GetUnclassified(ctx, 100)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "PBLN_1", pending[0].ExternalID)

	code := "GYEONGNAM_01"
	err = st.UpdateClassification(ctx, "PBLN_1", model.ClassificationResult{
		RegionCode: &code,
		Confidence: 0.9,
		Method:     model.MethodKeyword,
	})
	require.NoError(t, err)

	pending, err = st.GetUnclassified(ctx, 100)
	require.NoError(t, err)
	assert.Empty(t, pending)

	got, err := st.GetAnnouncement(ctx, "PBLN_1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NotNil(t, got.RegionCode)
	assert.Equal(t, "GYEONGNAM_01", *got.RegionCode)
	assert.Equal(t, model.MethodKeyword, got.Method)
	assert.Equal(t, model.ClassificationClassified, got.Status)
	require.NotNil(t, got.Confidence)
	assert.InDelta(t, 0.9, *got.Confidence, 1e-9)
}

func TestSQLiteStore_UpdateClassification_MissingRow(t *testing.T) {
	st := newTestSQLiteStore(t)

	code := "ALL"
	err := st.UpdateClassification(context.Background(), "PBLN_404", model.ClassificationResult{
		RegionCode: &code,
		Confidence: 0.5,
		Method:     model.MethodAI,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLiteStore_GetAnnouncement_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetAnnouncement(context.Background(), "PBLN_404")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteStore_GetStats(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.BulkInsert(ctx, []model.Announcement{
		testAnnouncement("PBLN_1"),
		testAnnouncement("PBLN_2"),
		testAnnouncement("PBLN_3"),
	})
	require.NoError(t, err)

	changwon := "GYEONGNAM_01"
	all := "ALL"
	require.NoError(t, st.UpdateClassification(ctx, "PBLN_1", model.ClassificationResult{
		RegionCode: &changwon, Confidence: 0.9, Method: model.MethodKeyword,
	}))
	require.NoError(t, st.UpdateClassification(ctx, "PBLN_2", model.ClassificationResult{
		RegionCode: &all, Confidence: 0.7, Method: model.MethodAI,
	}))

	stats, err := st.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Classified)
	assert.Equal(t, 1, stats.Unclassified)
	require.Len(t, stats.ByRegion, 2)
	assert.Equal(t, "ALL", stats.ByRegion[0].Code)
	assert.Equal(t, "전국", stats.ByRegion[0].Name)
	require.Len(t, stats.ByMethod, 2)
}
