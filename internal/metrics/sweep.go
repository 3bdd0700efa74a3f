package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Sweep metrics
var (
	// RunDuration tracks how long confirmed runs take (scan + delete)
	RunDuration prometheus.Histogram

	// FilesDeletedTotal tracks files removed
	FilesDeletedTotal prometheus.Counter

	// BytesFreedTotal tracks bytes released by removed files
	BytesFreedTotal prometheus.Counter

	// AlreadyGoneTotal tracks candidates that vanished before deletion
	AlreadyGoneTotal prometheus.Counter

	// DeleteFailuresTotal tracks per-file failures by reason
	DeleteFailuresTotal *prometheus.CounterVec

	// UnreadableDirsTotal tracks directories the walk could not read
	UnreadableDirsTotal prometheus.Counter

	// CandidatesLastRun is the size of the frozen candidate set of the last run
	CandidatesLastRun prometheus.Gauge

	// LastRunTimestamp records Unix timestamp of the last finished run
	LastRunTimestamp prometheus.Gauge

	// LastRunState is 1 for the terminal state of the last run
	LastRunState *prometheus.GaugeVec

	// RootFreeBytes is the free space on the swept filesystem after the last run
	RootFreeBytes prometheus.Gauge
)

func initSweepMetrics() {
	RunDuration = NewDurationHistogram(
		"sweeper_run_duration_seconds",
		"Duration of confirmed sweep runs in seconds.",
	)

	FilesDeletedTotal = NewCounter(
		"sweeper_files_deleted_total",
		"Total number of files deleted.",
	)

	BytesFreedTotal = NewCounter(
		"sweeper_bytes_freed_total",
		"Total bytes freed by deleted files.",
	)

	AlreadyGoneTotal = NewCounter(
		"sweeper_files_already_gone_total",
		"Candidates that no longer existed at deletion time.",
	)

	DeleteFailuresTotal = NewCounterVec(
		"sweeper_delete_failures_total",
		"Files that could not be deleted, by reason.",
		[]string{"reason"},
	)

	UnreadableDirsTotal = NewCounter(
		"sweeper_unreadable_dirs_total",
		"Directories skipped because they could not be read.",
	)

	CandidatesLastRun = NewGauge(
		"sweeper_candidates",
		"Number of matching files found by the last scan.",
	)

	LastRunTimestamp = NewGauge(
		"sweeper_last_run_timestamp_seconds",
		"Timestamp of the last finished run (Unix epoch seconds).",
	)

	LastRunState = NewGaugeVec(
		"sweeper_last_run_state",
		"Terminal state of the last run (1 for the active state).",
		[]string{"state"},
	)

	RootFreeBytes = NewGauge(
		"sweeper_root_free_bytes",
		"Free bytes on the filesystem holding the root after the last run.",
	)
}

func registerSweepMetrics(reg prometheus.Registerer) {
	reg.MustRegister(
		RunDuration,
		FilesDeletedTotal,
		BytesFreedTotal,
		AlreadyGoneTotal,
		DeleteFailuresTotal,
		UnreadableDirsTotal,
		CandidatesLastRun,
		LastRunTimestamp,
		LastRunState,
		RootFreeBytes,
	)
}

// SetRunState resets all state gauges to 0, then sets the given state to 1
func SetRunState(state string) {
	stateLock.Lock()
	defer stateLock.Unlock()

	LastRunState.Reset()
	LastRunState.WithLabelValues(state).Set(1)
	LastRunTimestamp.Set(float64(time.Now().Unix()))
}

// RecordDeletion counts one removed file
func RecordDeletion(bytes int64) {
	FilesDeletedTotal.Inc()
	BytesFreedTotal.Add(float64(bytes))
}

// RecordFailure counts one file that could not be removed
func RecordFailure(reason string) {
	DeleteFailuresTotal.WithLabelValues(reason).Inc()
}
