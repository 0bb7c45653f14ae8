// Package sqlite provides SQLite-based persistent storage for the task list.
// Uses WAL mode for concurrent reads and crash-safe writes. All mutations go
// through WithTx so that a task operation and its records commit together.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
)

// DB wraps a SQLite connection with WAL mode and migrations.
type DB struct {
	db *sql.DB
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Store exposes the repositories over either the connection pool (reads)
// or an open transaction (WithTx).
type Store struct {
	q querier
}

// Open creates or opens the SQLite database at dir/state.db.
// Enables WAL mode, foreign keys, and 5-second busy timeout.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dir, "state.db")
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// Single connection: SQLite is single-writer and the task core relies on
	// one serialized writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping() error {
	return d.db.Ping()
}

// Store returns a non-transactional view for queries.
// Do not call it from inside a WithTx callback: the pool has one connection.
func (d *DB) Store() *Store {
	return &Store{q: d.db}
}

// WithTx runs fn inside a transaction. fn's error rolls everything back;
// a nil return commits.
func (d *DB) WithTx(fn func(s *Store) error) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&Store{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// migrate runs idempotent schema migrations.
func (d *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS node_info (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// Tasks. id is assigned densely from 1 by the task service.
		`CREATE TABLE IF NOT EXISTS tasks (
			id          INTEGER PRIMARY KEY,
			title       TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			state       INTEGER NOT NULL DEFAULT 0,
			balance     INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
			ppc_worker  INTEGER NOT NULL DEFAULT 0,
			ppc         INTEGER NOT NULL DEFAULT 0,
			q_rating    INTEGER NOT NULL DEFAULT 0,
			creator     TEXT NOT NULL,
			created_at  INTEGER NOT NULL,
			updated_at  INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_state ON tasks(state)`,

		// Role sets, ordered by enrollment position.
		`CREATE TABLE IF NOT EXISTS task_validators (
			task_id  INTEGER NOT NULL REFERENCES tasks(id),
			address  TEXT NOT NULL,
			position INTEGER NOT NULL,
			added_at INTEGER NOT NULL,
			PRIMARY KEY (task_id, address)
		)`,
		`CREATE TABLE IF NOT EXISTS task_workers (
			task_id  INTEGER NOT NULL REFERENCES tasks(id),
			address  TEXT NOT NULL,
			position INTEGER NOT NULL,
			added_at INTEGER NOT NULL,
			PRIMARY KEY (task_id, address)
		)`,

		// Worked hours per (task, worker).
		`CREATE TABLE IF NOT EXISTS worked_hours (
			task_id    INTEGER NOT NULL REFERENCES tasks(id),
			worker     TEXT NOT NULL,
			hours      INTEGER NOT NULL CHECK (hours >= 0),
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (task_id, worker)
		)`,

		// Escrow ledger (double-entry bookkeeping).
		`CREATE TABLE IF NOT EXISTS escrow_ledger (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			type        TEXT NOT NULL,
			entry_type  TEXT NOT NULL,
			account     TEXT NOT NULL,
			amount      INTEGER NOT NULL,
			task_id     INTEGER NOT NULL,
			description TEXT,
			balance     INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_escrow_account ON escrow_ledger(account)`,
		`CREATE INDEX IF NOT EXISTS idx_escrow_task ON escrow_ledger(task_id)`,

		// Operation records (hash chain).
		`CREATE TABLE IF NOT EXISTS records (
			seq             INTEGER PRIMARY KEY,
			id              TEXT NOT NULL UNIQUE,
			operation       TEXT NOT NULL,
			task_id         INTEGER NOT NULL,
			actor           TEXT NOT NULL,
			payload         TEXT NOT NULL,
			resulting_state INTEGER NOT NULL,
			timestamp       INTEGER NOT NULL,
			prev_hash       TEXT NOT NULL,
			hash            TEXT NOT NULL,
			signature       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_task ON records(task_id)`,

		// Reward token (used by the local token ledger database).
		`CREATE TABLE IF NOT EXISTS reward_balances (
			address    TEXT PRIMARY KEY,
			balance    INTEGER NOT NULL CHECK (balance >= 0),
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS reward_minters (
			address    TEXT PRIMARY KEY,
			granted_at INTEGER NOT NULL
		)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// ─── Node Info ──────────────────────────────────────────────────────────────

// SetNodeInfo stores a key-value pair in node_info.
func (s *Store) SetNodeInfo(key, value string) error {
	_, err := s.q.Exec(
		`INSERT INTO node_info (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value`,
		key, value,
	)
	return err
}

// GetNodeInfo retrieves a value from node_info.
func (s *Store) GetNodeInfo(key string) (string, error) {
	var value string
	err := s.q.QueryRow(`SELECT value FROM node_info WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
