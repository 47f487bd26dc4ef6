package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

var schemas = []string{`
CREATE TABLE IF NOT EXISTS filters (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	guild_id TEXT NOT NULL,
	scope TEXT NOT NULL,
	scope_id TEXT NOT NULL,
	text TEXT NOT NULL,
	severity INTEGER NOT NULL,
	UNIQUE(scope, scope_id, text)
);`, `
CREATE INDEX IF NOT EXISTS idx_filters_guild ON filters(guild_id);
`, `
CREATE TABLE IF NOT EXISTS content_filters (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	guild_id TEXT NOT NULL,
	hash TEXT NOT NULL,
	severity INTEGER NOT NULL,
	UNIQUE(guild_id, hash)
);`, `
CREATE TABLE IF NOT EXISTS filter_immunities (
	guild_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	PRIMARY KEY (guild_id, user_id)
);`, `
CREATE TABLE IF NOT EXISTS guild_settings (
	guild_id TEXT NOT NULL PRIMARY KEY,
	jail_role_id TEXT NOT NULL DEFAULT '',
	mute_role_id TEXT NOT NULL DEFAULT '',
	journal_channel_id TEXT NOT NULL DEFAULT ''
);`, `
CREATE TABLE IF NOT EXISTS scheduled_tasks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	guild_id TEXT NOT NULL,
	causer_id TEXT NOT NULL,
	due_at DATETIME NOT NULL,
	recurrence_seconds INTEGER,
	kind TEXT NOT NULL,
	params TEXT NOT NULL DEFAULT '{}'
);`,
}

// Store is the sqlite-backed settings store shared by every subsystem.
type Store struct {
	db *sqlx.DB
}

// Open connects to the sqlite database at path and applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_busy_timeout=5000&_foreign_keys=on"
	}
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	// sqlite serializes writers anyway; one connection avoids SQLITE_BUSY between our own goroutines.
	db.SetMaxOpenConns(1)

	for _, stmt := range schemas {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying handle.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// WithTx runs fn in a transaction, committing when fn returns nil and rolling
// back on error or panic.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
		if err != nil {
			tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", cerr)
		}
	}()
	return fn(tx)
}

// Optimize runs sqlite's housekeeping pragmas.
func (s *Store) Optimize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize"); err != nil {
		return fmt.Errorf("failed to optimize database: %w", err)
	}
	return nil
}

// Size returns the database size in bytes.
func (s *Store) Size(ctx context.Context) (int64, error) {
	var pages, pageSize int64
	if err := s.db.GetContext(ctx, &pages, "PRAGMA page_count"); err != nil {
		return 0, err
	}
	if err := s.db.GetContext(ctx, &pageSize, "PRAGMA page_size"); err != nil {
		return 0, err
	}
	return pages * pageSize, nil
}

func rowsAffected(res interface{ RowsAffected() (int64, error) }) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return n, nil
}
