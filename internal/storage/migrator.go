package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog/log"
)

const migrationTableSchema = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version    TEXT PRIMARY KEY,
	checksum   TEXT NOT NULL DEFAULT '',
	applied_at DATETIME NOT NULL
);`

type migration struct {
	version  string
	body     string
	checksum string
}

// loadMigrations reads every *.sql file of fsys in lexical order.
func loadMigrations(fsys fs.FS) ([]migration, error) {
	names, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)

	out := make([]migration, 0, len(names))
	for _, name := range names {
		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		out = append(out, migration{
			version:  name,
			body:     string(body),
			checksum: strconv.FormatUint(xxhash.Sum64(body), 16),
		})
	}

	return out, nil
}

// runMigrations applies the migrations of fsys not yet recorded in
// schema_migrations, each in its own transaction. An applied migration whose
// file changed since is reported and left alone.
func runMigrations(ctx context.Context, db *sql.DB, fsys fs.FS) error {
	if _, err := db.ExecContext(ctx, migrationTableSchema); err != nil {
		return fmt.Errorf("create migration table: %w", err)
	}

	migrations, err := loadMigrations(fsys)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		var checksum string
		err := db.QueryRowContext(ctx,
			"SELECT checksum FROM schema_migrations WHERE version = ?", m.version).Scan(&checksum)

		switch {
		case err == nil:
			if checksum != m.checksum {
				log.Warn().
					Str("version", m.version).
					Str("applied", checksum).
					Str("current", m.checksum).
					Msg("Applied migration was modified")
			}
			continue
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("check migration %s: %w", m.version, err)
		}

		if err := applyMigration(ctx, db, m); err != nil {
			return err
		}
	}

	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, m migration) error {
	log.Debug().Str("version", m.version).Msg("Applying local database migration")

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, m.body); err != nil {
		return fmt.Errorf("exec migration %s: %w", m.version, err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, checksum, applied_at) VALUES (?, ?, ?)",
		m.version, m.checksum, time.Now().UTC()); err != nil {
		return fmt.Errorf("record migration %s: %w", m.version, err)
	}

	return tx.Commit()
}
