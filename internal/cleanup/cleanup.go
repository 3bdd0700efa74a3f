package cleanup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sweeper/internal/database"
	"sweeper/internal/fsops"
	"sweeper/internal/logging"
	"sweeper/internal/metrics"
	"sweeper/internal/safety"
	"sweeper/internal/scan"
)

// Failure reasons beyond the filesystem ones in fsops
const (
	ReasonSafety      = "safety_violation"
	ReasonInterrupted = "interrupted"
)

// Validator authorizes a single delete target
type Validator interface {
	ValidateDeleteTarget(path string) error
}

// Recorder persists per-file outcomes
type Recorder interface {
	Record(action string, candidate scan.Candidate, reason string, cause error) error
}

// Failure is a file the run could not remove
type Failure struct {
	Path   string
	Reason string
	Err    error
}

// Report summarizes the delete phase
type Report struct {
	Deleted     int
	AlreadyGone int
	DryRun      int
	BytesFreed  int64
	Failures    []Failure
}

// Failed returns the number of files that could not be removed
func (r *Report) Failed() int {
	return len(r.Failures)
}

// Cleaner performs deletions with structured logging
type Cleaner struct {
	logger    *logging.Logger
	deleter   fsops.Deleter
	validator Validator
	recorder  Recorder
	dryRun    bool
}

// NewCleaner creates a new Cleaner instance backed by the real filesystem
func NewCleaner(logger *logging.Logger, dryRun bool) *Cleaner {
	if logger == nil {
		logger = logging.Discard()
	}
	metrics.Init()
	return &Cleaner{
		logger:  logger,
		deleter: fsops.OSDeleter{},
		dryRun:  dryRun,
	}
}

// SetDeleter replaces the filesystem deleter
func (c *Cleaner) SetDeleter(d fsops.Deleter) {
	c.deleter = d
}

// SetValidator installs the safety validator consulted before every delete
func (c *Cleaner) SetValidator(v Validator) {
	c.validator = v
}

// SetRecorder installs the history recorder
func (c *Cleaner) SetRecorder(r Recorder) {
	c.recorder = r
}

// Clean deletes every candidate in order. Failures are recorded and the loop
// continues; a missing file counts as already deleted. Candidates left when
// ctx is canceled are reported as interrupted failures.
func (c *Cleaner) Clean(ctx context.Context, candidates []scan.Candidate) *Report {
	report := &Report{}
	c.logger.Info("Starting cleanup", "total_candidates", len(candidates), "dry_run", c.dryRun)

	for i, cand := range candidates {
		if err := ctx.Err(); err != nil {
			remaining := candidates[i:]
			c.logger.Warn("Cleanup interrupted", "remaining", len(remaining), "error", err)
			for _, rest := range remaining {
				report.Failures = append(report.Failures, Failure{Path: rest.Path, Reason: ReasonInterrupted, Err: err})
				metrics.RecordFailure(ReasonInterrupted)
			}
			break
		}
		c.cleanOne(cand, report)
	}

	c.logger.Info("Cleanup complete",
		"deleted", report.Deleted,
		"already_gone", report.AlreadyGone,
		"dry_run", report.DryRun,
		"errors", report.Failed(),
		"space_freed_bytes", report.BytesFreed,
	)
	return report
}

func (c *Cleaner) cleanOne(cand scan.Candidate, report *Report) {
	if c.validator != nil {
		if err := c.validator.ValidateDeleteTarget(cand.Path); err != nil {
			switch {
			case fsops.IsNotExist(err):
				c.alreadyGone(cand, report)
			case safety.IsViolation(err):
				c.fail(database.ActionSkip, cand, ReasonSafety, err, report)
			default:
				c.fail(database.ActionError, cand, fsops.Classify(err), err, report)
			}
			return
		}
	}

	if c.dryRun {
		c.logger.Info("[DRY RUN] Would delete file", "path", cand.Path, "size", cand.Size)
		c.logStructured(database.ActionDryRun, cand.Path, cand.Size, "")
		c.record(database.ActionDryRun, cand, "", nil)
		report.DryRun++
		return
	}

	err := c.deleter.Remove(cand.Path)
	switch {
	case err == nil:
		c.logStructured(database.ActionDelete, cand.Path, cand.Size, "")
		c.record(database.ActionDelete, cand, "", nil)
		report.Deleted++
		report.BytesFreed += cand.Size
		metrics.RecordDeletion(cand.Size)
	case fsops.IsNotExist(err):
		// Deleted by someone else between scan and now
		c.alreadyGone(cand, report)
	default:
		c.fail(database.ActionError, cand, fsops.Classify(err), err, report)
	}
}

func (c *Cleaner) alreadyGone(cand scan.Candidate, report *Report) {
	c.logger.Info("File already deleted", "path", cand.Path)
	c.logStructured(database.ActionAlreadyGone, cand.Path, 0, "")
	c.record(database.ActionAlreadyGone, cand, "", nil)
	report.AlreadyGone++
	metrics.AlreadyGoneTotal.Inc()
}

func (c *Cleaner) fail(action string, cand scan.Candidate, reason string, err error, report *Report) {
	c.logger.Error("Failed to delete", "path", cand.Path, "reason", reason, "error", err)
	c.logStructured(action, cand.Path, cand.Size, reason)
	c.record(action, cand, reason, err)
	report.Failures = append(report.Failures, Failure{Path: cand.Path, Reason: reason, Err: err})
	metrics.RecordFailure(reason)
}

func (c *Cleaner) record(action string, cand scan.Candidate, reason string, cause error) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.Record(action, cand, reason, cause); err != nil {
		// history is best effort, never fails the run
		c.logger.Error("Failed to record to database", "path", cand.Path, "error", err)
	}
}

// logStructured logs with structured format: timestamp, action, path, size, reason
func (c *Cleaner) logStructured(action, path string, size int64, reason string) {
	entry := fmt.Sprintf("[%s] %s path=%s size=%d",
		time.Now().UTC().Format(time.RFC3339),
		action,
		path,
		size,
	)
	if reason != "" {
		entry += fmt.Sprintf(` reason="%s"`, strings.ReplaceAll(reason, `"`, `\"`))
	}
	c.logger.Debug(entry)
}
