package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/gyeongnam-biz/collector-cli/internal/db"
	"github.com/gyeongnam-biz/collector-cli/internal/model"
	"github.com/gyeongnam-biz/collector-cli/internal/region"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool     db.Pool
	taxonomy *region.Taxonomy
	closeFn  func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const announcementColumns = `id, external_id, title, issuing_org, executing_org, summary, target,
	url, reception_url, attachment_dir, print_path, print_file_name, file_name,
	application_period, application_method, contact, category_major, category_minor,
	hashtags, total_count, view_count, source_created_at, fetched_at,
	region_code, classification_method, confidence, status`

const insertAnnouncementSQL = `INSERT INTO announcements (
	external_id, title, issuing_org, executing_org, summary, target,
	url, reception_url, attachment_dir, print_path, print_file_name, file_name,
	application_period, application_method, contact, category_major, category_minor,
	hashtags, total_count, view_count, source_created_at, fetched_at, status
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
ON CONFLICT (external_id) DO NOTHING`

const updateClassificationSQL = `UPDATE announcements
SET region_code = $1, classification_method = $2, confidence = $3, status = $4
WHERE external_id = $5`

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hottest store operations.
var preparedStatements = map[string]string{
	"insert_announcement":   insertAnnouncementSQL,
	"update_classification": updateClassificationSQL,
	"get_existing_ids":      `SELECT external_id FROM announcements`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig, taxonomy *region.Taxonomy) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, taxonomy: taxonomy, closeFn: pool.Close}, nil
}

// newPostgresWithPool wires an arbitrary pool, used by tests with pgxmock.
func newPostgresWithPool(pool db.Pool, taxonomy *region.Taxonomy) *PostgresStore {
	return &PostgresStore{pool: pool, taxonomy: taxonomy}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS regions (
	code   TEXT PRIMARY KEY,
	name   TEXT NOT NULL,
	type   TEXT NOT NULL,
	parent TEXT
);

CREATE TABLE IF NOT EXISTS announcements (
	id                    BIGSERIAL PRIMARY KEY,
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
	source_created_at     TIMESTAMPTZ,
	fetched_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
	region_code           TEXT REFERENCES regions(code),
	classification_method TEXT NOT NULL DEFAULT '',
	confidence            DOUBLE PRECISION,
	status                TEXT NOT NULL DEFAULT 'pending'
);

CREATE INDEX IF NOT EXISTS idx_announcements_status ON announcements(status);
CREATE INDEX IF NOT EXISTS idx_announcements_region_code ON announcements(region_code);
CREATE INDEX IF NOT EXISTS idx_announcements_fetched_at ON announcements(fetched_at DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

// Migrate creates the schema and seeds the region taxonomy. Seeding upserts
// so renamed regions converge on the canonical names.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	for _, r := range s.taxonomy.All() {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO regions (code, name, type, parent) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (code) DO UPDATE SET name = $2, type = $3, parent = $4`,
			r.Code, r.Name, string(r.Type), r.Parent,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: seed region %s", r.Code)
		}
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) GetExistingIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx, `SELECT external_id FROM announcements`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get existing ids")
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "postgres: scan external id")
		}
		ids[id] = struct{}{}
	}
	return ids, eris.Wrap(rows.Err(), "postgres: iterate existing ids")
}

// BulkInsert inserts announcements one row at a time so a single bad row
// cannot sink the batch. Duplicates are skipped via ON CONFLICT DO NOTHING.
// Returns the number of rows actually inserted.
func (s *PostgresStore) BulkInsert(ctx context.Context, anns []model.Announcement) (int, error) {
	inserted := 0
	for _, a := range anns {
		tag, err := s.pool.Exec(ctx, insertAnnouncementSQL,
			a.ExternalID, a.Title, a.IssuingOrg, a.ExecutingOrg, a.Summary, a.Target,
			a.URL, a.ReceptionURL, a.AttachmentDir, a.PrintPath, a.PrintFileName, a.FileName,
			a.ApplicationPeriod, a.ApplicationMethod, a.Contact, a.CategoryMajor, a.CategoryMinor,
			a.Hashtags, a.TotalCount, a.ViewCount, a.SourceCreatedAt, a.FetchedAt, string(a.Status),
		)
		if err != nil {
			if ctx.Err() != nil {
				return inserted, eris.Wrap(ctx.Err(), "postgres: bulk insert canceled")
			}
			zap.L().Warn("postgres: insert failed",
				zap.String("external_id", a.ExternalID), zap.Error(err))
			continue
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

func (s *PostgresStore) GetAnnouncement(ctx context.Context, externalID string) (*model.Announcement, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+announcementColumns+` FROM announcements WHERE external_id = $1`,
		externalID,
	)
	a, err := scanAnnouncement(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get announcement %s", externalID)
	}
	return a, nil
}

func (s *PostgresStore) GetUnclassified(ctx context.Context, limit int) ([]model.Announcement, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+announcementColumns+` FROM announcements
		 WHERE status = $1 ORDER BY fetched_at ASC LIMIT $2`,
		string(model.ClassificationPending), limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get unclassified")
	}
	defer rows.Close()

	var anns []model.Announcement
	for rows.Next() {
		a, err := scanAnnouncement(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan announcement")
		}
		anns = append(anns, *a)
	}
	return anns, eris.Wrap(rows.Err(), "postgres: iterate unclassified")
}

// UpdateClassification stores a region assignment and flips the row to
// classified. Results without a region code are not persistable; callers
// leave those rows pending.
func (s *PostgresStore) UpdateClassification(ctx context.Context, externalID string, result model.ClassificationResult) error {
	if result.RegionCode == nil {
		return eris.New("postgres: classification result has no region code")
	}
	tag, err := s.pool.Exec(ctx, updateClassificationSQL,
		*result.RegionCode, string(result.Method), result.Confidence,
		string(model.ClassificationClassified), externalID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update classification %s", externalID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("announcement not found: %s", externalID)
	}
	return nil
}

func (s *PostgresStore) GetStats(ctx context.Context) (*model.ClassificationStats, error) {
	stats := &model.ClassificationStats{}

	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE status = $1) FROM announcements`,
		string(model.ClassificationClassified),
	).Scan(&stats.Total, &stats.Classified)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: count announcements")
	}
	stats.Unclassified = stats.Total - stats.Classified

	rows, err := s.pool.Query(ctx,
		`SELECT region_code, COUNT(*) FROM announcements
		 WHERE region_code IS NOT NULL GROUP BY region_code ORDER BY COUNT(*) DESC, region_code`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: stats by region")
	}
	defer rows.Close()
	for rows.Next() {
		var rc model.RegionCount
		if err := rows.Scan(&rc.Code, &rc.Count); err != nil {
			return nil, eris.Wrap(err, "postgres: scan region count")
		}
		rc.Name = s.taxonomy.Name(rc.Code)
		stats.ByRegion = append(stats.ByRegion, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate region counts")
	}

	mrows, err := s.pool.Query(ctx,
		`SELECT classification_method, COUNT(*) FROM announcements
		 WHERE status = $1 GROUP BY classification_method ORDER BY COUNT(*) DESC, classification_method`,
		string(model.ClassificationClassified),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: stats by method")
	}
	defer mrows.Close()
	for mrows.Next() {
		var method string
		var count int
		if err := mrows.Scan(&method, &count); err != nil {
			return nil, eris.Wrap(err, "postgres: scan method count")
		}
		stats.ByMethod = append(stats.ByMethod, model.MethodCount{
			Method: model.ClassificationMethod(method),
			Count:  count,
		})
	}
	return stats, eris.Wrap(mrows.Err(), "postgres: iterate method counts")
}

func scanAnnouncement(row pgx.Row) (*model.Announcement, error) {
	var a model.Announcement
	var method string
	var status string
	if err := row.Scan(
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
