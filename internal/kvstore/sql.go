package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// DefaultTable is the table used when none is configured.
const DefaultTable = "kv_store"

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// SQL is a Store backed by a Postgres table of (key, value, updated_at).
type SQL struct {
	db    *sqlx.DB
	table string
}

// NewSQL wraps an open database. table defaults to DefaultTable.
func NewSQL(db *sqlx.DB, table string) (*SQL, error) {
	if db == nil {
		return nil, fmt.Errorf("kvstore: db is required")
	}
	if table == "" {
		table = DefaultTable
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("kvstore: invalid table name %q", table)
	}
	return &SQL{db: db, table: table}, nil
}

// OpenSQL connects with driver and dsn.
func OpenSQL(driver, dsn, table string) (*SQL, error) {
	if dsn == "" {
		return nil, fmt.Errorf("kvstore: dsn is required")
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("kvstore: open %s: %w", driver, err)
	}
	s, err := NewSQL(db, table)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates the table when missing.
func (s *SQL) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, s.table)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("kvstore: create table %s: %w", s.table, err)
	}
	return nil
}

// Get returns the value for key.
func (s *SQL) Get(ctx context.Context, key string) (string, error) {
	var value string
	query := fmt.Sprintf("SELECT value FROM %s WHERE key = $1", s.table)
	if err := s.db.GetContext(ctx, &value, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("kvstore: get %s: %w", key, err)
	}
	return value, nil
}

// Set upserts value under key.
func (s *SQL) Set(ctx context.Context, key, value string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	query := fmt.Sprintf(`INSERT INTO %s (key, value, updated_at) VALUES ($1, $2, NOW())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`, s.table)
	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("kvstore: set %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *SQL) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE key = $1", s.table)
	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("kvstore: delete %s: %w", key, err)
	}
	return nil
}

// Close closes the database.
func (s *SQL) Close() error {
	return s.db.Close()
}
