package database

import (
	"database/sql"
	"time"
)

const deletionColumns = `id, run_id, timestamp, action, path, file_name, size, reason, error_message`

// GetRecentDeletions returns the N most recent per-file outcomes
func (d *HistoryDB) GetRecentDeletions(limit int) ([]DeletionRecord, error) {
	return d.queryDeletions(`
	SELECT `+deletionColumns+`
	FROM deletions
	ORDER BY id DESC
	LIMIT ?`, limit)
}

// GetFailedDeletions returns the N most recent files that could not be removed
func (d *HistoryDB) GetFailedDeletions(limit int) ([]DeletionRecord, error) {
	return d.queryDeletions(`
	SELECT `+deletionColumns+`
	FROM deletions
	WHERE action IN ('ERROR', 'SKIP')
	ORDER BY id DESC
	LIMIT ?`, limit)
}

// GetRunDeletions returns every outcome recorded for a run
func (d *HistoryDB) GetRunDeletions(runID int64) ([]DeletionRecord, error) {
	return d.queryDeletions(`
	SELECT `+deletionColumns+`
	FROM deletions
	WHERE run_id = ?
	ORDER BY id`, runID)
}

// GetRecentRuns returns the N most recent runs
func (d *HistoryDB) GetRecentRuns(limit int) ([]RunRecord, error) {
	rows, err := d.db.Query(`
	SELECT id, started_at, finished_at, root, pattern, dry_run, confirmed, state,
	       deleted, already_gone, failed, bytes_freed
	FROM runs
	ORDER BY id DESC
	LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		var finished sql.NullTime
		if err := rows.Scan(
			&r.ID, &r.StartedAt, &finished, &r.Root, &r.Pattern, &r.DryRun, &r.Confirmed,
			&r.State, &r.Deleted, &r.AlreadyGone, &r.Failed, &r.BytesFreed,
		); err != nil {
			return nil, err
		}
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Stats holds aggregated statistics
type Stats struct {
	Runs            int
	FailedRuns      int
	AbortedRuns     int
	FilesDeleted    int
	FilesFailed     int
	TotalSpaceFreed int64
	ByReason        map[string]int
	StartDate       time.Time
	EndDate         time.Time
}

// GetStats returns statistics for confirmed runs started in the last days
func (d *HistoryDB) GetStats(days int) (*Stats, error) {
	now := time.Now()
	since := now.AddDate(0, 0, -days)

	stats := &Stats{
		StartDate: since,
		EndDate:   now,
		ByReason:  make(map[string]int),
	}

	err := d.db.QueryRow(`
		SELECT
			COUNT(*),
			COUNT(CASE WHEN state = 'DECLINED' THEN 1 END),
			COUNT(CASE WHEN state = 'PARTIALLY_FAILED' THEN 1 END),
			COALESCE(SUM(deleted), 0),
			COALESCE(SUM(failed), 0),
			COALESCE(SUM(bytes_freed), 0)
		FROM runs
		WHERE started_at >= ?
	`, since).Scan(&stats.Runs, &stats.FailedRuns, &stats.AbortedRuns,
		&stats.FilesDeleted, &stats.FilesFailed, &stats.TotalSpaceFreed)
	if err != nil {
		return nil, err
	}

	rows, err := d.db.Query(`
		SELECT reason, COUNT(*)
		FROM deletions
		WHERE reason IS NOT NULL AND timestamp >= ?
		GROUP BY reason
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var reason string
		var count int
		if err := rows.Scan(&reason, &count); err != nil {
			return nil, err
		}
		stats.ByReason[reason] = count
	}

	return stats, rows.Err()
}

// DeleteOldRecords removes runs and outcomes older than the given days
func (d *HistoryDB) DeleteOldRecords(olderThanDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)

	if _, err := d.db.Exec(`
		DELETE FROM deletions WHERE run_id IN (SELECT id FROM runs WHERE started_at < ?)
	`, cutoff); err != nil {
		return 0, err
	}

	result, err := d.db.Exec(`DELETE FROM runs WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// queryDeletions executes a query and scans deletion rows
func (d *HistoryDB) queryDeletions(query string, args ...interface{}) ([]DeletionRecord, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []DeletionRecord
	for rows.Next() {
		var r DeletionRecord
		var fileName, reason, errMsg sql.NullString

		if err := rows.Scan(
			&r.ID, &r.RunID, &r.Timestamp, &r.Action, &r.Path, &fileName,
			&r.Size, &reason, &errMsg,
		); err != nil {
			return nil, err
		}

		r.FileName = fileName.String
		r.Reason = reason.String
		r.ErrorMessage = errMsg.String
		records = append(records, r)
	}

	return records, rows.Err()
}
