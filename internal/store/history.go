// Package store persists the run history to SQLite.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"pyrun/internal/logging"
)

var (
	// ErrNotFound is returned by Get for an unknown run ID.
	ErrNotFound = errors.New("run not found")
	// ErrClosed is returned by every method after Close.
	ErrClosed = errors.New("history store closed")
)

// HistoryStore records one row per finished run.
//
// Storage location: <state dir>/history.db
type HistoryStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// RunRecord is a single finished run.
type RunRecord struct {
	ID          int64
	RunID       string
	Kind        string // "selection" or "function"
	Target      string // buffer path, plus the function name for function runs
	ScriptPath  string
	Command     string
	ExitCode    int
	StartedAt   time.Time
	DurationMs  int64
	StdoutBytes int64
	StderrBytes int64
}

// Succeeded reports whether the run exited with code 0.
func (r RunRecord) Succeeded() bool { return r.ExitCode == 0 }

// HistoryStats summarizes the table.
type HistoryStats struct {
	TotalRuns     int
	FailedRuns    int
	KindBreakdown map[string]int
}

// Open creates or opens the history database at dbPath. ":memory:" is
// accepted for tests.
func Open(dbPath string) (*HistoryStore, error) {
	logging.StoreDebug("Opening history store at %s", dbPath)

	dsn := dbPath
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			logging.StoreError("Failed to create history directory %s: %v", dir, err)
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		dsn = dbPath + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		logging.StoreError("Failed to open history database at %s: %v", dbPath, err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Completion callbacks arrive from runner goroutines; one connection
	// keeps ":memory:" databases shared and writes serialized.
	db.SetMaxOpenConns(1)

	s := &HistoryStore{db: db, dbPath: dbPath}
	if err := s.initialize(); err != nil {
		logging.StoreError("Failed to initialize history schema: %v", err)
		db.Close()
		return nil, err
	}

	logging.Store("History store initialized at %s", dbPath)
	return s, nil
}

func (s *HistoryStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT UNIQUE NOT NULL,
		kind TEXT NOT NULL,
		target TEXT NOT NULL,
		script_path TEXT NOT NULL,
		command TEXT NOT NULL,
		exit_code INTEGER NOT NULL,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		stdout_bytes INTEGER NOT NULL DEFAULT 0,
		stderr_bytes INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_kind ON runs(kind);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record inserts rec. A repeated RunID replaces the earlier row.
func (s *HistoryStore) Record(rec RunRecord) error {
	if rec.RunID == "" {
		return fmt.Errorf("run id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrClosed
	}

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO runs
		(run_id, kind, target, script_path, command, exit_code,
		 started_at, duration_ms, stdout_bytes, stderr_bytes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Kind, rec.Target, rec.ScriptPath, rec.Command, rec.ExitCode,
		rec.StartedAt.UnixNano(), rec.DurationMs, rec.StdoutBytes, rec.StderrBytes,
	)
	if err != nil {
		logging.StoreError("Failed to record run %s: %v", rec.RunID, err)
		return fmt.Errorf("record run %s: %w", rec.RunID, err)
	}

	logging.StoreDebug("Recorded run %s (kind=%s, exit=%d)", rec.RunID, rec.Kind, rec.ExitCode)
	return nil
}

const selectRuns = `
	SELECT id, run_id, kind, target, script_path, command, exit_code,
	       started_at, duration_ms, stdout_bytes, stderr_bytes
	FROM runs`

// Get returns the run with the given ID.
func (s *HistoryStore) Get(runID string) (*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrClosed
	}

	row := s.db.QueryRow(selectRuns+` WHERE run_id = ?`, runID)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Recent returns up to limit runs, newest first. limit <= 0 returns all.
func (s *HistoryStore) Recent(limit int) ([]RunRecord, error) {
	return s.query(selectRuns+` ORDER BY started_at DESC, id DESC LIMIT ?`, sqlLimit(limit))
}

// RecentByKind is Recent restricted to one script kind.
func (s *HistoryStore) RecentByKind(kind string, limit int) ([]RunRecord, error) {
	return s.query(selectRuns+` WHERE kind = ? ORDER BY started_at DESC, id DESC LIMIT ?`, kind, sqlLimit(limit))
}

// Stats returns run counts.
func (s *HistoryStore) Stats() (*HistoryStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrClosed
	}

	stats := &HistoryStats{KindBreakdown: make(map[string]int)}
	if err := s.db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(CASE WHEN exit_code != 0 THEN 1 ELSE 0 END), 0) FROM runs`).
		Scan(&stats.TotalRuns, &stats.FailedRuns); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`SELECT kind, COUNT(*) FROM runs GROUP BY kind`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		stats.KindBreakdown[kind] = n
	}
	return stats, rows.Err()
}

// Prune deletes all but the newest keep runs and returns how many were removed.
func (s *HistoryStore) Prune(keep int) (int64, error) {
	if keep < 0 {
		return 0, fmt.Errorf("keep must not be negative: %d", keep)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return 0, ErrClosed
	}

	res, err := s.db.Exec(`
		DELETE FROM runs WHERE id NOT IN (
			SELECT id FROM runs ORDER BY started_at DESC, id DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		logging.Store("Pruned %d runs (kept %d)", n, keep)
	}
	return n, nil
}

// Close closes the database connection.
func (s *HistoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		logging.Store("Closing history store at %s", s.dbPath)
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

func (s *HistoryStore) query(q string, args ...any) ([]RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrClosed
	}

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []RunRecord{}
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (RunRecord, error) {
	var rec RunRecord
	var startedAt int64
	err := row.Scan(
		&rec.ID, &rec.RunID, &rec.Kind, &rec.Target, &rec.ScriptPath, &rec.Command,
		&rec.ExitCode, &startedAt, &rec.DurationMs, &rec.StdoutBytes, &rec.StderrBytes,
	)
	if err != nil {
		return RunRecord{}, err
	}
	rec.StartedAt = time.Unix(0, startedAt)
	return rec, nil
}

// SQLite treats a negative LIMIT as no limit.
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
