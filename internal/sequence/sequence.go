// Package sequence provides a SQLite-backed monotonic counter used to
// allocate commitment ids.
package sequence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS sequences (
	name  TEXT PRIMARY KEY,
	value INTEGER NOT NULL DEFAULT 0
);
`

// ErrExhausted is returned by Next once the largest uint64 is taken.
var ErrExhausted = errors.New("id space exhausted")

// DB wraps a sql.DB holding named counters.
type DB struct {
	conn *sql.DB
	name string
}

// Open opens (or creates) the counter database. name selects the counter
// row, so several stores may share one database file.
func Open(dsn, name string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
		return nil, fmt.Errorf("sequence: create dir: %w", err)
	}
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sequence: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sequence: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sequence: apply schema: %w", err)
	}
	if _, err := conn.Exec(`INSERT OR IGNORE INTO sequences (name, value) VALUES (?, 0)`, name); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sequence: init counter: %w", err)
	}
	return &DB{conn: conn, name: name}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Current returns the last allocated value.
func (db *DB) Current(ctx context.Context) (uint64, error) {
	var v uint64
	err := db.conn.QueryRowContext(ctx, `SELECT value FROM sequences WHERE name = ?`, db.name).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("sequence: read %s: %w", db.name, err)
	}
	return v, nil
}

// Next allocates a value strictly greater than both the stored counter and
// floor, the largest value known to be taken elsewhere, and persists it.
func (db *DB) Next(ctx context.Context, floor uint64) (uint64, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sequence: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var cur uint64
	if err := tx.QueryRowContext(ctx, `SELECT value FROM sequences WHERE name = ?`, db.name).Scan(&cur); err != nil {
		return 0, fmt.Errorf("sequence: read %s: %w", db.name, err)
	}
	if cur == math.MaxUint64 || floor == math.MaxUint64 {
		return 0, fmt.Errorf("sequence: advance %s: %w", db.name, ErrExhausted)
	}
	next := max(cur, floor) + 1
	if _, err := tx.ExecContext(ctx, `UPDATE sequences SET value = ? WHERE name = ?`, next, db.name); err != nil {
		return 0, fmt.Errorf("sequence: advance %s: %w", db.name, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sequence: commit: %w", err)
	}
	return next, nil
}
