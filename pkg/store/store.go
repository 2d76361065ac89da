// Package store is the transactional local store backing the
// resource-mapping table (pkg/mapping), the orch-job/orch-request work
// queue (pkg/workqueue) and the subcloud registry (pkg/subcloudregistry).
// spec.md §5 requires these to be "strongly consistent against the
// engine's local transactional store"; this package is that store.
//
// Grounded on github.com/jordigilh/kubernaut's dependency stack
// (sqlx + pgx + goose) and the hand-written-repository idiom shown in
// its pkg/datastorage/repository tests, since the teacher repo itself
// has no SQL persistence layer to imitate (it persists everything as
// Kubernetes objects).
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	"github.com/distributedcloud/identity-sync-engine/pkg/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps a pooled connection to the local transactional store.
type DB struct {
	*sqlx.DB
}

// Open connects to the store and applies pending goose migrations.
func Open(ctx context.Context, cfg config.StoreConfig) (*DB, error) {
	sqlDB, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("store: set dialect: %w", err)
	}
	if err := goose.Up(sqlDB, "migrations"); err != nil {
		return nil, fmt.Errorf("store: migrate: %w", err)
	}

	return &DB{DB: sqlx.NewDb(sqlDB, "pgx")}, nil
}

// ensure the pgx stdlib driver registers itself even if nothing else in
// this file references the package directly.
var _ = stdlib.GetDefaultDriver
