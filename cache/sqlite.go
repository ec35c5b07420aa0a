package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver

	"github.com/cpp4you/snippetexec/sandbox"
)

const schema = `CREATE TABLE IF NOT EXISTS execution_results (
	snippet_id  TEXT NOT NULL,
	source_hash TEXT NOT NULL,
	result      TEXT NOT NULL,
	stored_at   INTEGER NOT NULL,
	PRIMARY KEY (snippet_id, source_hash)
)`

// SQLite is a Cache persisted in a SQLite database.
type SQLite struct {
	db     *sql.DB
	closed atomic.Bool
	now    func() time.Time
}

// OpenSQLite opens (or creates) the cache database at path. ":memory:" gives a
// private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	if path == ":memory:" {
		// Every connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	if path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL")
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	c, err := NewSQLite(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// NewSQLite uses an already open database. The table is created if missing.
func NewSQLite(ctx context.Context, db *sql.DB) (*SQLite, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("create cache schema: %w", err)
	}
	return &SQLite{db: db, now: time.Now}, nil
}

// Get returns the cached result for key.
func (c *SQLite) Get(ctx context.Context, key Key) (sandbox.ExecutionResult, bool, error) {
	if c.closed.Load() {
		return sandbox.ExecutionResult{}, false, ErrClosed
	}

	var raw string
	err := c.db.QueryRowContext(ctx,
		`SELECT result FROM execution_results WHERE snippet_id = ? AND source_hash = ?`,
		key.SnippetID, key.SourceHash).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return sandbox.ExecutionResult{}, false, nil
	}
	if err != nil {
		return sandbox.ExecutionResult{}, false, fmt.Errorf("query cached result: %w", err)
	}

	var res sandbox.ExecutionResult
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return sandbox.ExecutionResult{}, false, fmt.Errorf("decode cached result: %w", err)
	}
	return res, true, nil
}

// Put stores res under key when it is cacheable, replacing any older entry.
func (c *SQLite) Put(ctx context.Context, key Key, res sandbox.ExecutionResult) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if !Cacheable(res) {
		return nil
	}

	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO execution_results (snippet_id, source_hash, result, stored_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (snippet_id, source_hash) DO UPDATE SET result = excluded.result, stored_at = excluded.stored_at`,
		key.SnippetID, key.SourceHash, string(raw), c.now().Unix())
	if err != nil {
		return fmt.Errorf("store result: %w", err)
	}
	return nil
}

// Prune removes every entry whose key is not in keep. It returns the number of
// rows removed.
func (c *SQLite) Prune(ctx context.Context, keep []Key) (int64, error) {
	if c.closed.Load() {
		return 0, ErrClosed
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin prune: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `CREATE TEMP TABLE IF NOT EXISTS keep_keys (snippet_id TEXT, source_hash TEXT)`); err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM keep_keys`); err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}
	for _, k := range keep {
		if _, err := tx.ExecContext(ctx, `INSERT INTO keep_keys VALUES (?, ?)`, k.SnippetID, k.SourceHash); err != nil {
			return 0, fmt.Errorf("prune: %w", err)
		}
	}
	out, err := tx.ExecContext(ctx, `DELETE FROM execution_results
		WHERE NOT EXISTS (SELECT 1 FROM keep_keys k
			WHERE k.snippet_id = execution_results.snippet_id AND k.source_hash = execution_results.source_hash)`)
	if err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit prune: %w", err)
	}
	return out.RowsAffected()
}

// Close closes the underlying database.
func (c *SQLite) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.db.Close()
}

var _ Cache = (*SQLite)(nil)
