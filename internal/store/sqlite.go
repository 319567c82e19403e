package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/gyeongnam-biz/collector-cli/internal/model"
	"github.com/gyeongnam-biz/collector-cli/internal/region"
)

// SQLiteStore implements Store using modernc.org/sqlite. It backs local
// development and one-off collection runs without a postgres instance.
type SQLiteStore struct {
	db       *sql.DB
	taxonomy *region.Taxonomy
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string, taxonomy *region.Taxonomy) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, taxonomy: taxonomy}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS regions (
	code   TEXT PRIMARY KEY,
	name   TEXT NOT NULL,
	type   TEXT NOT NULL,
	parent TEXT
);

CREATE TABLE IF NOT EXISTS announcements (
	id                    INTEGER PRIMARY KEY AUTOINCREMENT,
	external_id           TEXT NOT NULL UNIQUE,
	title                 TEXT NOT NULL,
	issuing_org           TEXT NOT NULL DEFAULT '',
	executing_org         TEXT NOT NULL DEFAULT '',
	summary               TEXT NOT NULL DEFAULT '',
	target                TEXT NOT NULL DEFAULT '',
	url                   TEXT NOT NULL DEFAULT '',
	reception_url         TEXT NOT NULL DEFAULT '',
	attachment_dir        TEXT NOT NULL DEFAULT '',
	print_path            TEXT NOT NULL DEFAULT '',
	print_file_name       TEXT NOT NULL DEFAULT '',
	file_name             TEXT NOT NULL DEFAULT '',
	application_period    TEXT NOT NULL DEFAULT '',
	application_method    TEXT NOT NULL DEFAULT '',
	contact               TEXT NOT NULL DEFAULT '',
	category_major        TEXT NOT NULL DEFAULT '',
	category_minor        TEXT NOT NULL DEFAULT '',
	hashtags              TEXT NOT NULL DEFAULT '',
	total_count           INTEGER NOT NULL DEFAULT 0,
	view_count            INTEGER NOT NULL DEFAULT 0,
	source_created_at     DATETIME,
	fetched_at            DATETIME NOT NULL,
	region_code           TEXT REFERENCES regions(code),
	classification_method TEXT NOT NULL DEFAULT '',
	confidence            REAL,
	status                TEXT NOT NULL DEFAULT 'pending'
);

CREATE INDEX IF NOT EXISTS idx_announcements_status ON announcements(status);
CREATE INDEX IF NOT EXISTS idx_announcements_region_code ON announcements(region_code);
`

const sqliteInsertAnnouncement = `INSERT INTO announcements (
	external_id, title, issuing_org, executing_org, summary, target,
	url, reception_url, attachment_dir, print_path, print_file_name, file_name,
	application_period, application_method, contact, category_major, category_minor,
	hashtags, total_count, view_count, source_created_at, fetched_at, status
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (external_id) DO NOTHING`

const sqliteAnnouncementColumns = `id, external_id, title, issuing_org, executing_org, summary, target,
	url, reception_url, attachment_dir, print_path, print_file_name, file_name,
	application_period, application_method, contact, category_major, category_minor,
	hashtags, total_count, view_count, source_created_at, fetched_at,
	region_code, classification_method, confidence, status`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "sqlite: migrate")
	}
	for _, r := range s.taxonomy.All() {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO regions (code, name, type, parent) VALUES (?, ?, ?, ?)
			 ON CONFLICT (code) DO UPDATE SET name = excluded.name, type = excluded.type, parent = excluded.parent`,
			r.Code, r.Name, string(r.Type), r.Parent,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: seed region %s", r.Code)
		}
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return eris.Wrap(s.db.Close(), "sqlite: close")
}

func (s *SQLiteStore) GetExistingIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT external_id FROM announcements`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get existing ids")
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan external id")
		}
		ids[id] = struct{}{}
	}
	return ids, eris.Wrap(rows.Err(), "sqlite: iterate existing ids")
}

func (s *SQLiteStore) BulkInsert(ctx context.Context, anns []model.Announcement) (int, error) {
	inserted := 0
	for _, a := range anns {
		res, err := s.db.ExecContext(ctx, sqliteInsertAnnouncement,
			a.ExternalID, a.Title, a.IssuingOrg, a.ExecutingOrg, a.Summary, a.Target,
			a.URL, a.ReceptionURL, a.AttachmentDir, a.PrintPath, a.PrintFileName, a.FileName,
			a.ApplicationPeriod, a.ApplicationMethod, a.Contact, a.CategoryMajor, a.CategoryMinor,
			a.Hashtags, a.TotalCount, a.ViewCount, a.SourceCreatedAt, a.FetchedAt, string(a.Status),
		)
		if err != nil {
			if ctx.Err() != nil {
				return inserted, eris.Wrap(ctx.Err(), "sqlite: bulk insert canceled")
			}
			zap.L().Warn("sqlite: insert failed",
				zap.String("external_id", a.ExternalID), zap.Error(err))
			continue
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}
	return inserted, nil
}

func (s *SQLiteStore) GetAnnouncement(ctx context.Context, externalID string) (*model.Announcement, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteAnnouncementColumns+` FROM announcements WHERE external_id = ?`,
		externalID,
	)
	a, err := scanSQLiteAnnouncement(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get announcement %s", externalID)
	}
	return a, nil
}

func (s *SQLiteStore) GetUnclassified(ctx context.Context, limit int) ([]model.Announcement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteAnnouncementColumns+` FROM announcements
		 WHERE status = ? ORDER BY fetched_at ASC LIMIT ?`,
		string(model.ClassificationPending), limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get unclassified")
	}
	defer rows.Close()

	var anns []model.Announcement
	for rows.Next() {
		a, err := scanSQLiteAnnouncement(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan announcement")
		}
		anns = append(anns, *a)
	}
	return anns, eris.Wrap(rows.Err(), "sqlite: iterate unclassified")
}

func (s *SQLiteStore) UpdateClassification(ctx context.Context, externalID string, result model.ClassificationResult) error {
	if result.RegionCode == nil {
		return eris.New("sqlite: classification result has no region code")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE announcements
		 SET region_code = ?, classification_method = ?, confidence = ?, status = ?
		 WHERE external_id = ?`,
		*result.RegionCode, string(result.Method), result.Confidence,
		string(model.ClassificationClassified), externalID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update classification %s", externalID)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return eris.Errorf("announcement not found: %s", externalID)
	}
	return nil
}

func (s *SQLiteStore) GetStats(ctx context.Context) (*model.ClassificationStats, error) {
	stats := &model.ClassificationStats{}

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) FROM announcements`,
		string(model.ClassificationClassified),
	).Scan(&stats.Total, &stats.Classified)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: count announcements")
	}
	stats.Unclassified = stats.Total - stats.Classified

	rows, err := s.db.QueryContext(ctx,
		`SELECT region_code, COUNT(*) FROM announcements
		 WHERE region_code IS NOT NULL GROUP BY region_code ORDER BY COUNT(*) DESC, region_code`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: stats by region")
	}
	defer rows.Close()
	for rows.Next() {
		var rc model.RegionCount
		if err := rows.Scan(&rc.Code, &rc.Count); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan region count")
		}
		rc.Name = s.taxonomy.Name(rc.Code)
		stats.ByRegion = append(stats.ByRegion, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate region counts")
	}

	mrows, err := s.db.QueryContext(ctx,
		`SELECT classification_method, COUNT(*) FROM announcements
		 WHERE status = ? GROUP BY classification_method ORDER BY COUNT(*) DESC, classification_method`,
		string(model.ClassificationClassified),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: stats by method")
	}
	defer mrows.Close()
	for mrows.Next() {
		var method string
		var count int
		if err := mrows.Scan(&method, &count); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan method count")
		}
		stats.ByMethod = append(stats.ByMethod, model.MethodCount{
			Method: model.ClassificationMethod(method),
			Count:  count,
		})
	}
	return stats, eris.Wrap(mrows.Err(), "sqlite: iterate method counts")
}

func scanSQLiteAnnouncement(scan func(dest ...any) error) (*model.Announcement, error) {
	var a model.Announcement
	var method string
	var status string
	if err := scan(
		&a.ID, &a.ExternalID, &a.Title, &a.IssuingOrg, &a.ExecutingOrg, &a.Summary, &a.Target,
		&a.URL, &a.ReceptionURL, &a.AttachmentDir, &a.PrintPath, &a.PrintFileName, &a.FileName,
		&a.ApplicationPeriod, &a.ApplicationMethod, &a.Contact, &a.CategoryMajor, &a.CategoryMinor,
		&a.Hashtags, &a.TotalCount, &a.ViewCount, &a.SourceCreatedAt, &a.FetchedAt,
		&a.RegionCode, &method, &a.Confidence, &status,
	); err != nil {
		return nil, err
	}
	a.Method = model.ClassificationMethod(method)
	a.Status = model.ClassificationStatus(status)
	return &a, nil
}
