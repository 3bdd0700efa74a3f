// Package sweep runs one confirmed recursive cleanup:
// AwaitingConfirmation -> Declined | Running -> Completed | PartiallyFailed.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"sweeper/internal/cleanup"
	"sweeper/internal/confirm"
	"sweeper/internal/database"
	"sweeper/internal/disk"
	"sweeper/internal/fsops"
	"sweeper/internal/logging"
	"sweeper/internal/metrics"
	"sweeper/internal/pattern"
	"sweeper/internal/safety"
	"sweeper/internal/scan"
)

type State string

const (
	StateAwaitingConfirmation State = "AWAITING_CONFIRMATION"
	StateDeclined             State = "DECLINED"
	StateRunning              State = "RUNNING"
	StateCompleted            State = "COMPLETED"
	StatePartiallyFailed      State = "PARTIALLY_FAILED"
)

var (
	ErrInvalidRoot    = errors.New("invalid root")
	ErrInvalidPattern = errors.New("invalid pattern")
	ErrPrompt         = errors.New("confirmation failed")
)

// stateAborted marks a history row whose run stopped on an unexpected error
const stateAborted = "ABORTED"

// Options fix the inputs of a single invocation
type Options struct {
	Root           string
	Pattern        string
	MaxDepth       int
	DryRun         bool
	ProtectedPaths []string
}

// Result is the terminal outcome of a run
type Result struct {
	State        State
	Root         string
	Pattern      string
	Confirmed    bool
	DryRun       bool
	Candidates   int
	Report       *cleanup.Report
	WalkFailures []scan.WalkFailure
	Duration     time.Duration
}

// Failures merges unreadable directories and files that could not be deleted
func (r *Result) Failures() []cleanup.Failure {
	var out []cleanup.Failure
	for _, wf := range r.WalkFailures {
		out = append(out, cleanup.Failure{Path: wf.Path, Reason: wf.Reason, Err: wf.Err})
	}
	if r.Report != nil {
		out = append(out, r.Report.Failures...)
	}
	return out
}

// Sweeper wires the confirmation gate, scanner and cleaner together
type Sweeper struct {
	confirmer confirm.Confirmer
	logger    *logging.Logger
	deleter   fsops.Deleter

	history     *database.HistoryDB
	historyPath string
}

// New creates a Sweeper. Deletions go to the real filesystem unless SetDeleter is used.
func New(c confirm.Confirmer, logger *logging.Logger) *Sweeper {
	if logger == nil {
		logger = logging.Discard()
	}
	metrics.Init()
	return &Sweeper{
		confirmer: c,
		logger:    logger,
		deleter:   fsops.OSDeleter{},
	}
}

// SetDeleter replaces the filesystem deleter
func (s *Sweeper) SetDeleter(d fsops.Deleter) {
	s.deleter = d
}

// SetHistory enables run history recording into an already open database
func (s *Sweeper) SetHistory(db *database.HistoryDB) {
	s.history = db
}

// SetHistoryPath enables run history recording into the database at path.
// The database is opened, and created if needed, only once a run is confirmed.
func (s *Sweeper) SetHistoryPath(path string) {
	s.historyPath = path
}

// Run validates the inputs, asks for confirmation and, only when it is
// granted, scans and deletes. Invalid inputs are reported before any prompt.
func (s *Sweeper) Run(ctx context.Context, opts Options) (*Result, error) {
	root, validator, err := s.checkRoot(opts)
	if err != nil {
		return nil, err
	}

	matcher, err := pattern.Compile(opts.Pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}

	res := &Result{
		State:   StateAwaitingConfirmation,
		Root:    root,
		Pattern: matcher.String(),
		DryRun:  opts.DryRun,
	}

	confirmed, err := s.confirmer.Confirm(ctx, confirm.Request{Root: root, Pattern: matcher.String()})
	if err != nil && !errors.Is(err, confirm.ErrInterrupted) {
		return nil, fmt.Errorf("%w: %v", ErrPrompt, err)
	}
	if !confirmed {
		// Nothing is written on decline, history included.
		s.logger.Info("Operator declined, nothing deleted", "root", root, "pattern", matcher.String())
		res.State = StateDeclined
		metrics.SetRunState(string(res.State))
		return res, nil
	}

	res.Confirmed = true
	res.State = StateRunning
	start := time.Now()

	hist := s.openHistory()
	if hist != nil && hist != s.history {
		defer hist.Close()
	}
	runID, recorder := s.startHistory(hist, res, start)

	scanner := scan.NewScanner(s.logger, scan.Options{MaxDepth: opts.MaxDepth})
	scanned, err := scanner.Scan(ctx, root, matcher)
	if scanned == nil || (err != nil && ctx.Err() == nil) {
		if err == nil {
			err = errors.New("no scan result")
		}
		s.finishHistory(hist, runID, res, stateAborted)
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	res.WalkFailures = scanned.Failures
	metrics.UnreadableDirsTotal.Add(float64(len(scanned.Failures)))
	for _, wf := range scanned.Failures {
		metrics.RecordFailure(wf.Reason)
		if recorder != nil {
			s.record(recorder, scan.Candidate{Path: wf.Path}, wf)
		}
	}

	candidates := scanned.Candidates
	if err != nil {
		// Interrupted mid-walk: the candidate set is incomplete, delete nothing.
		s.logger.Warn("Scan interrupted, skipping deletion", "root", root)
		res.WalkFailures = append(res.WalkFailures, scan.WalkFailure{Path: root, Reason: cleanup.ReasonInterrupted, Err: err})
		candidates = nil
	}
	res.Candidates = len(scanned.Candidates)
	metrics.CandidatesLastRun.Set(float64(res.Candidates))

	cleaner := cleanup.NewCleaner(s.logger, opts.DryRun)
	cleaner.SetDeleter(s.deleter)
	cleaner.SetValidator(validator)
	if recorder != nil {
		cleaner.SetRecorder(recorder)
	}
	res.Report = cleaner.Clean(ctx, candidates)

	res.Duration = time.Since(start)
	metrics.RunDuration.Observe(res.Duration.Seconds())
	if usage, err := disk.GetUsage(root); err == nil {
		metrics.RootFreeBytes.Set(float64(usage.FreeBytes))
	} else {
		s.logger.Debug("Failed to read filesystem usage", "root", root, "error", err)
	}

	if len(res.Failures()) > 0 {
		res.State = StatePartiallyFailed
	} else {
		res.State = StateCompleted
	}
	metrics.SetRunState(string(res.State))
	s.finishHistory(hist, runID, res, string(res.State))
	return res, nil
}

// checkRoot fails fast on a missing, non-directory, unreadable or protected root
func (s *Sweeper) checkRoot(opts Options) (string, *safety.Validator, error) {
	root := opts.Root
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %s: %v", ErrInvalidRoot, root, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %s: %v", ErrInvalidRoot, abs, err)
	}
	if !info.IsDir() {
		return "", nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidRoot, abs)
	}
	f, err := os.Open(abs)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %s is not readable: %v", ErrInvalidRoot, abs, err)
	}
	f.Close()

	v, err := safety.NewValidator(abs, opts.ProtectedPaths)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}
	if err := v.ValidateRoot(); err != nil {
		return "", nil, fmt.Errorf("%w: %s: %v", ErrInvalidRoot, abs, err)
	}
	return abs, v, nil
}

// openHistory returns the shared database, or opens the configured path.
// Only called after confirmation so a declined run never creates the file.
func (s *Sweeper) openHistory() *database.HistoryDB {
	if s.history != nil || s.historyPath == "" {
		return s.history
	}
	db, err := database.NewHistoryDB(s.historyPath)
	if err != nil {
		s.logger.Error("Failed to open history database, history disabled for this run", "path", s.historyPath, "error", err)
		return nil
	}
	return db
}

func (s *Sweeper) startHistory(db *database.HistoryDB, res *Result, start time.Time) (int64, *database.RunRecorder) {
	if db == nil {
		return 0, nil
	}
	runID, err := db.StartRun(res.Root, res.Pattern, res.DryRun, start)
	if err != nil {
		s.logger.Error("Failed to record run start, history disabled for this run", "error", err)
		return 0, nil
	}
	return runID, db.Recorder(runID)
}

func (s *Sweeper) record(rec *database.RunRecorder, cand scan.Candidate, wf scan.WalkFailure) {
	if err := rec.Record(database.ActionError, cand, wf.Reason, wf.Err); err != nil {
		s.logger.Error("Failed to record to database", "path", cand.Path, "error", err)
	}
}

func (s *Sweeper) finishHistory(db *database.HistoryDB, runID int64, res *Result, state string) {
	if db == nil || runID == 0 {
		return
	}
	summary := database.RunSummary{
		State:      state,
		Confirmed:  res.Confirmed,
		Failed:     len(res.Failures()),
		FinishedAt: time.Now(),
	}
	if res.Report != nil {
		summary.Deleted = res.Report.Deleted
		summary.AlreadyGone = res.Report.AlreadyGone
		summary.BytesFreed = res.Report.BytesFreed
	}
	if err := db.FinishRun(runID, summary); err != nil {
		s.logger.Error("Failed to record run result", "run_id", runID, "error", err)
	}
}
