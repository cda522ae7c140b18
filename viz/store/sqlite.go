package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dshills/algostep-go/viz/step"
	_ "modernc.org/sqlite"
)

// SQLiteStore archives runs in a SQLite database through the pure-Go
// modernc.org/sqlite driver.
//
// Schema:
//   - runs: one row per archived run
//   - run_steps: one row per step, JSON-encoded, with its snapshot
//     fingerprint; removed with its run
//
// Fingerprints are checked on Load, so a damaged archive surfaces as
// ErrCorrupt instead of replaying wrong states.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
	path   string
}

// NewSQLiteStore opens (and if needed creates) the archive at path. Use
// ":memory:" for an archive that lives as long as the store.
//
//	archive, err := store.NewSQLiteStore("./runs.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer archive.Close()
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}

	// One connection: SQLite has a single writer, and ":memory:" databases
	// are per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) createTables(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			algorithm TEXT NOT NULL,
			origin TEXT NOT NULL,
			truncated INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS run_steps (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			idx INTEGER NOT NULL,
			step TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			PRIMARY KEY (run_id, idx)
		)`,
		"CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at)",
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Save writes run in a single transaction, replacing any run with the same
// ID.
func (s *SQLiteStore) Save(ctx context.Context, run Run) (err error) {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := validate(run); err != nil {
		return err
	}
	origin, err := json.Marshal(run.Origin)
	if err != nil {
		return fmt.Errorf("failed to marshal origin: %w", err)
	}
	created := run.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", run.ID); err != nil {
		return fmt.Errorf("failed to replace run: %w", err)
	}
	if _, err = tx.ExecContext(ctx,
		"INSERT INTO runs (id, algorithm, origin, truncated, created_at) VALUES (?, ?, ?, ?, ?)",
		run.ID, run.Algorithm, string(origin), boolInt(run.Truncated), created.UnixNano(),
	); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	ins, err := tx.PrepareContext(ctx,
		"INSERT INTO run_steps (run_id, idx, step, fingerprint) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare step insert: %w", err)
	}
	defer ins.Close()

	for _, st := range run.Steps {
		data, mErr := json.Marshal(st)
		if mErr != nil {
			err = fmt.Errorf("failed to marshal step %d: %w", st.Index, mErr)
			return err
		}
		fp := strconv.FormatUint(st.Fingerprint(), 16)
		if _, err = ins.ExecContext(ctx, run.ID, st.Index, string(data), fp); err != nil {
			return fmt.Errorf("failed to save step %d: %w", st.Index, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// Load reads the run stored under id and verifies every step fingerprint.
func (s *SQLiteStore) Load(ctx context.Context, id string) (Run, error) {
	if err := s.checkOpen(); err != nil {
		return Run{}, err
	}

	run := Run{ID: id}
	var (
		origin  string
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT algorithm, origin, truncated, created_at FROM runs WHERE id = ?", id,
	).Scan(&run.Algorithm, &origin, &run.Truncated, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("failed to load run: %w", err)
	}
	if err := json.Unmarshal([]byte(origin), &run.Origin); err != nil {
		return Run{}, fmt.Errorf("failed to unmarshal origin: %w", err)
	}
	run.CreatedAt = time.Unix(0, created).UTC()

	rows, err := s.db.QueryContext(ctx,
		"SELECT idx, step, fingerprint FROM run_steps WHERE run_id = ? ORDER BY idx", id)
	if err != nil {
		return Run{}, fmt.Errorf("failed to load steps: %w", err)
	}
	defer rows.Close()

	run.Steps = []step.Step{}
	for rows.Next() {
		var (
			idx  int
			data string
			fp   string
		)
		if err := rows.Scan(&idx, &data, &fp); err != nil {
			return Run{}, fmt.Errorf("failed to scan step: %w", err)
		}
		var st step.Step
		if err := json.Unmarshal([]byte(data), &st); err != nil {
			return Run{}, fmt.Errorf("failed to unmarshal step %d: %w", idx, err)
		}
		if st.Index != idx || strconv.FormatUint(st.Fingerprint(), 16) != fp {
			return Run{}, fmt.Errorf("%w: run %s step %d", ErrCorrupt, id, idx)
		}
		run.Steps = append(run.Steps, st)
	}
	if err := rows.Err(); err != nil {
		return Run{}, fmt.Errorf("failed to iterate steps: %w", err)
	}
	return run, nil
}

// List returns summaries ordered by creation time, then id.
func (s *SQLiteStore) List(ctx context.Context) ([]Summary, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.algorithm, r.truncated, r.created_at, COUNT(st.idx)
		FROM runs r
		LEFT JOIN run_steps st ON st.run_id = r.id
		GROUP BY r.id
		ORDER BY r.created_at, r.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var (
			sum     Summary
			created int64
		)
		if err := rows.Scan(&sum.ID, &sum.Algorithm, &sum.Truncated, &created, &sum.Steps); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		sum.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes the run stored under id along with its steps.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the database. Calling Close more than once is safe.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Path returns the database path the store was opened with.
func (s *SQLiteStore) Path() string {
	return s.path
}
