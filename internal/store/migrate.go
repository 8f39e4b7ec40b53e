package store

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// migrationLockKey serializes migration runs across overlapping deploys.
const migrationLockKey = 7_301_997

// Migrate applies every *.sql file in dir that is not yet recorded in
// schema_migrations, in lexical order. Each file runs in its own transaction
// holding a transaction-scoped advisory lock, and is re-checked under that
// lock so a concurrent runner never applies it twice.
func Migrate(ctx context.Context, pool Pool, dir string, logger *zap.Logger) (int, error) {
	if _, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`); err != nil {
		return 0, eris.Wrap(err, "migrate: create schema_migrations")
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return 0, eris.Wrap(err, "migrate: list files")
	}
	sort.Strings(files)

	txm := NewTxManager(pool)
	applied := 0
	for _, file := range files {
		version := strings.TrimSuffix(filepath.Base(file), ".sql")

		body, err := os.ReadFile(file)
		if err != nil {
			return applied, eris.Wrapf(err, "migrate: read %s", file)
		}

		var ran bool
		err = txm.WithTx(ctx, func(ctx context.Context) error {
			db := conn(ctx, pool)
			if _, err := db.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, migrationLockKey); err != nil {
				return eris.Wrap(err, "migrate: acquire advisory lock")
			}

			var exists bool
			if err := db.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, version,
			).Scan(&exists); err != nil {
				return eris.Wrapf(err, "migrate: check %s", version)
			}
			if exists {
				return nil
			}

			if _, err := db.Exec(ctx, string(body)); err != nil {
				return eris.Wrapf(err, "migrate: apply %s", version)
			}
			if _, err := db.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
				return eris.Wrapf(err, "migrate: record %s", version)
			}
			ran = true
			return nil
		})
		if err != nil {
			return applied, err
		}
		if !ran {
			continue
		}

		logger.Info("applied migration", zap.String("version", version))
		applied++
	}
	return applied, nil
}
