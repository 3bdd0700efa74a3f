package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"sweeper/internal/scan"
)

// Actions recorded per file
const (
	ActionDelete      = "DELETE"
	ActionAlreadyGone = "ALREADY_GONE"
	ActionError       = "ERROR"
	ActionSkip        = "SKIP"
	ActionDryRun      = "DRY_RUN"
)

// HistoryDB manages the SQLite database of sweep runs and per-file outcomes
type HistoryDB struct {
	db *sql.DB
}

// RunRecord represents one invocation of the cleaner
type RunRecord struct {
	ID          int64
	StartedAt   time.Time
	FinishedAt  *time.Time
	Root        string
	Pattern     string
	DryRun      bool
	Confirmed   bool
	State       string
	Deleted     int
	AlreadyGone int
	Failed      int
	BytesFreed  int64
}

// DeletionRecord represents a single file outcome
type DeletionRecord struct {
	ID           int64
	RunID        int64
	Timestamp    time.Time
	Action       string
	Path         string
	FileName     string
	Size         int64
	Reason       string
	ErrorMessage string
}

// RunSummary is written when a run reaches a terminal state
type RunSummary struct {
	State       string
	Confirmed   bool
	Deleted     int
	AlreadyGone int
	Failed      int
	BytesFreed  int64
	FinishedAt  time.Time
}

// NewHistoryDB creates a new database connection and initializes schema
func NewHistoryDB(dbPath string) (*HistoryDB, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	// _loc=auto enables DATETIME parsing into time.Time
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_loc=auto")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	// Exec instead of Ping so the file is created on first use
	if _, err = db.Exec("SELECT 1"); err != nil {
		return nil, fmt.Errorf("failed to initialize database (check permissions on %s): %w", dbPath, err)
	}

	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if _, err = db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	hdb := &HistoryDB{db: db}
	if err = hdb.initSchema(); err != nil {
		return nil, err
	}
	return hdb, nil
}

// initSchema creates tables and indexes if they don't exist
func (d *HistoryDB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		root TEXT NOT NULL,
		pattern TEXT NOT NULL,
		dry_run INTEGER NOT NULL DEFAULT 0,
		confirmed INTEGER NOT NULL DEFAULT 1,
		state TEXT NOT NULL DEFAULT 'RUNNING',
		deleted INTEGER NOT NULL DEFAULT 0,
		already_gone INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		bytes_freed INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS deletions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id),
		timestamp DATETIME NOT NULL,
		action TEXT NOT NULL,
		path TEXT NOT NULL,
		file_name TEXT,
		size INTEGER NOT NULL,
		reason TEXT,
		error_message TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_deletions_run ON deletions(run_id);
	CREATE INDEX IF NOT EXISTS idx_deletions_action ON deletions(action);
	CREATE INDEX IF NOT EXISTS idx_deletions_timestamp ON deletions(timestamp);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	_, err := d.db.Exec(schema)
	return err
}

// StartRun inserts a row for a confirmed run and returns its id
func (d *HistoryDB) StartRun(root, pattern string, dryRun bool, startedAt time.Time) (int64, error) {
	res, err := d.db.Exec(
		`INSERT INTO runs (started_at, root, pattern, dry_run, confirmed, state) VALUES (?, ?, ?, ?, 1, 'RUNNING')`,
		startedAt, root, pattern, dryRun,
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	return res.LastInsertId()
}

// FinishRun stores the terminal state of a run
func (d *HistoryDB) FinishRun(runID int64, s RunSummary) error {
	_, err := d.db.Exec(`
		UPDATE runs
		SET finished_at = ?, state = ?, confirmed = ?, deleted = ?,
		    already_gone = ?, failed = ?, bytes_freed = ?
		WHERE id = ?`,
		s.FinishedAt, s.State, s.Confirmed, s.Deleted,
		s.AlreadyGone, s.Failed, s.BytesFreed, runID,
	)
	if err != nil {
		return fmt.Errorf("finish run %d: %w", runID, err)
	}
	return nil
}

// RecordDeletion inserts a per-file outcome
func (d *HistoryDB) RecordDeletion(runID int64, action string, candidate scan.Candidate, reason, errorMsg string) error {
	_, err := d.db.Exec(`
		INSERT INTO deletions (run_id, timestamp, action, path, file_name, size, reason, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		time.Now(),
		action,
		candidate.Path,
		filepath.Base(candidate.Path),
		candidate.Size,
		nullIfEmpty(reason),
		nullIfEmpty(errorMsg),
	)
	return err
}

// Recorder binds the database to one run
func (d *HistoryDB) Recorder(runID int64) *RunRecorder {
	return &RunRecorder{db: d, runID: runID}
}

// RunRecorder records outcomes for a single run
type RunRecorder struct {
	db    *HistoryDB
	runID int64
}

func (r *RunRecorder) Record(action string, candidate scan.Candidate, reason string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return r.db.RecordDeletion(r.runID, action, candidate, reason, msg)
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// Close closes the database connection
func (d *HistoryDB) Close() error {
	return d.db.Close()
}

// Vacuum optimizes the database
func (d *HistoryDB) Vacuum() error {
	_, err := d.db.Exec("VACUUM")
	return err
}
