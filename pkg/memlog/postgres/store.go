// Package postgres provides a PostgreSQL-backed implementation of the
// memlog.Store interface.
//
// All entries live in a single memory_log table; [New] installs the schema
// via CREATE TABLE IF NOT EXISTS on first use.
//
// Usage:
//
//	store, err := postgres.New(ctx, dsn)
//	if err != nil { … }
//	entries, err := store.AppendCapped(ctx, entry, 50)
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/irisvox/irisvox/pkg/memlog"
)

// Compile-time interface assertion.
var _ memlog.Store = (*Store)(nil)

const ddlMemoryLog = `
CREATE TABLE IF NOT EXISTS memory_log (
    id        BIGSERIAL    PRIMARY KEY,
    role      TEXT         NOT NULL,
    text      TEXT         NOT NULL,
    timestamp TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_memory_log_timestamp
    ON memory_log (timestamp DESC);
`

// Store is a [memlog.Store] backed by a PostgreSQL memory_log table.
// All methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to the database at dsn, installs the schema, and returns a
// ready Store.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("memlog postgres: connect: %w", err)
	}
	if _, err := pool.Exec(ctx, ddlMemoryLog); err != nil {
		pool.Close()
		return nil, fmt.Errorf("memlog postgres: migrate: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Load implements [memlog.Store]. It returns all entries, newest first.
func (s *Store) Load(ctx context.Context) ([]memlog.Entry, error) {
	const q = `
		SELECT role, text, timestamp
		FROM   memory_log
		ORDER  BY id DESC`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("memlog postgres: load: %w", err)
	}
	return collectEntries(rows)
}

// AppendCapped implements [memlog.Store]. The insert and the eviction of
// entries beyond max run in a single transaction.
func (s *Store) AppendCapped(ctx context.Context, entry memlog.Entry, max int) ([]memlog.Entry, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("memlog postgres: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const ins = `INSERT INTO memory_log (role, text, timestamp) VALUES ($1, $2, $3)`
	if _, err := tx.Exec(ctx, ins, string(entry.Role), entry.Text, entry.Timestamp); err != nil {
		return nil, fmt.Errorf("memlog postgres: insert: %w", err)
	}

	if max > 0 {
		const evict = `
			DELETE FROM memory_log
			WHERE  id NOT IN (SELECT id FROM memory_log ORDER BY id DESC LIMIT $1)`
		if _, err := tx.Exec(ctx, evict, max); err != nil {
			return nil, fmt.Errorf("memlog postgres: evict: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("memlog postgres: commit: %w", err)
	}
	return s.Load(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// collectEntries scans pgx rows into a slice of Entry values.
func collectEntries(rows pgx.Rows) ([]memlog.Entry, error) {
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (memlog.Entry, error) {
		var (
			e    memlog.Entry
			role string
		)
		if err := row.Scan(&role, &e.Text, &e.Timestamp); err != nil {
			return memlog.Entry{}, err
		}
		e.Role = memlog.Role(role)
		return e, nil
	})
	if err != nil {
		return nil, fmt.Errorf("memlog postgres: scan rows: %w", err)
	}
	if entries == nil {
		entries = []memlog.Entry{}
	}
	return entries, nil
}
