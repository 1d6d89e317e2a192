package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/pkordes/trip-countdown/migrations"
)

// SQLiteStore implements Store on a single-file SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// compile-time check: SQLiteStore must satisfy Store.
var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (or creates) the database at path, enables WAL mode,
// and applies the local schema migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("localstore.OpenSQLite: open: %w", err)
	}

	// One writer keeps SQLite from returning SQLITE_BUSY under concurrent saves.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("localstore.OpenSQLite: enable WAL: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db.DB, migrations.Local())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("localstore.OpenSQLite: goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("localstore.OpenSQLite: migrate: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get returns the value stored under key.
func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.GetContext(ctx, &value, `SELECT value FROM kv WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("localstore.SQLiteStore.Get %q: %w", key, err)
	}
	return value, true, nil
}

// SetMany upserts every entry inside one transaction.
func (s *SQLiteStore) SetMany(ctx context.Context, entries map[string]string) error {
	const q = `
		INSERT INTO kv (key, value, updated_at)
		VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		ON CONFLICT (key) DO UPDATE
		SET value = excluded.value, updated_at = excluded.updated_at`

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("localstore.SQLiteStore.SetMany: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	// Deterministic write order keeps lock acquisition predictable.
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if _, err := tx.ExecContext(ctx, q, k, entries[k]); err != nil {
			return fmt.Errorf("localstore.SQLiteStore.SetMany %q: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("localstore.SQLiteStore.SetMany: commit: %w", err)
	}
	return nil
}
