package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/gyeongnam-biz/collector-cli/internal/config"
	"github.com/gyeongnam-biz/collector-cli/internal/region"
)

// Open constructs a Store from config. The driver selects between postgres
// for deployments and sqlite for local runs.
func Open(ctx context.Context, cfg config.StoreConfig, taxonomy *region.Taxonomy) (Store, error) {
	switch cfg.Driver {
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL, nil, taxonomy)
	case "sqlite":
		return NewSQLite(cfg.DatabaseURL, taxonomy)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
