// Package database opens the bill store and keeps its schema current.
// PostgreSQL is the production engine; SQLite serves local runs and tests.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect names the SQL engine behind a DB
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// DB wraps *sql.DB with the dialect the queries must respect
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Querier is satisfied by both *sql.DB and *sql.Tx
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open connects with the given driver and runs migrations
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	switch Dialect(driver) {
	case Postgres:
		return NewPostgresConnection(ctx, dsn)
	case SQLite:
		return NewSQLiteConnection(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// NewPostgresConnection opens a PostgreSQL pool and migrates it
func NewPostgresConnection(ctx context.Context, dsn string) (*DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	d := &DB{DB: db, Dialect: Postgres}
	if err := d.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

// NewSQLiteConnection opens (creating if needed) a SQLite file and migrates it.
// A single connection serializes writers, which is what SQLite wants anyway.
func NewSQLiteConnection(ctx context.Context, path string) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	d := &DB{DB: db, Dialect: SQLite}
	if err := d.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

// ForUpdate returns the row-locking suffix for SELECTs inside a transaction
func (d *DB) ForUpdate() string {
	if d.Dialect == Postgres {
		return " FOR UPDATE"
	}
	return ""
}

// InTx runs fn inside a transaction, committing when it returns nil
func (d *DB) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Migrate creates the schema if it does not exist yet
func (d *DB) Migrate(ctx context.Context) error {
	pk := "BIGSERIAL PRIMARY KEY"
	if d.Dialect == SQLite {
		pk = "INTEGER PRIMARY KEY AUTOINCREMENT"
	}

	for _, stmt := range migrations {
		if _, err := d.ExecContext(ctx, strings.ReplaceAll(stmt, "{{pk}}", pk)); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}
	return nil
}

// Amounts are stored in minor units, timestamps as unix seconds.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id {{pk}},
		telegram_id BIGINT NOT NULL UNIQUE,
		username TEXT,
		avatar_url TEXT,
		created_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS bills (
		id {{pk}},
		owner_id BIGINT NOT NULL REFERENCES users(id),
		title TEXT NOT NULL DEFAULT '',
		total_sum BIGINT NOT NULL,
		unallocated_sum BIGINT NOT NULL,
		payment_details TEXT,
		is_closed BOOLEAN NOT NULL DEFAULT FALSE,
		split_type TEXT NOT NULL DEFAULT 'manual',
		status TEXT NOT NULL DEFAULT 'open',
		created_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS bill_items (
		id {{pk}},
		bill_id BIGINT NOT NULL REFERENCES bills(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		price BIGINT NOT NULL,
		quantity INTEGER NOT NULL,
		item_sum BIGINT NOT NULL,
		assigned_to_user_id BIGINT REFERENCES users(id)
	)`,
	`CREATE TABLE IF NOT EXISTS bill_participants (
		id {{pk}},
		bill_id BIGINT NOT NULL REFERENCES bills(id) ON DELETE CASCADE,
		user_id BIGINT REFERENCES users(id),
		guest_name TEXT,
		allocated_amount BIGINT NOT NULL DEFAULT 0,
		is_paid BOOLEAN NOT NULL DEFAULT FALSE,
		UNIQUE (bill_id, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bills_owner ON bills(owner_id)`,
	`CREATE INDEX IF NOT EXISTS idx_items_bill ON bill_items(bill_id)`,
	`CREATE INDEX IF NOT EXISTS idx_participants_bill ON bill_participants(bill_id)`,
	`CREATE INDEX IF NOT EXISTS idx_participants_user ON bill_participants(user_id)`,
}
