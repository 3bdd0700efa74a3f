package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"sweeper/internal/config"
	"sweeper/internal/database"
	"sweeper/internal/exitcodes"
	"sweeper/internal/ui"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// query renders one report to out
type query struct {
	out        io.Writer
	db         *database.HistoryDB
	jsonOutput bool
}

func run(args []string, stdout, stderr io.Writer) int {
	// Parse command-line flags
	fs := flag.NewFlagSet("sweeper-history", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", config.DefaultPath, "Path to configuration file (for database_path)")
	dbPath := fs.String("db", "", "Path to history database (overrides config)")
	recent := fs.Int("recent", 0, "Show N most recent file outcomes")
	runs := fs.Int("runs", 0, "Show N most recent runs")
	runID := fs.Int64("run", 0, "Show every file outcome of one run")
	failed := fs.Bool("failed", false, "Show files that could not be deleted")
	stats := fs.Bool("stats", false, "Show run statistics")
	days := fs.Int("days", 30, "Number of days for statistics and pruning")
	prune := fs.Bool("prune", false, "Delete history older than -days, then vacuum")
	jsonOutput := fs.Bool("json", false, "Output in JSON format")
	if err := fs.Parse(args); err != nil {
		return exitcodes.InvalidConfig
	}

	if !*prune && !*stats && *runs <= 0 && *runID <= 0 && !*failed && *recent <= 0 {
		fs.Usage()
		fmt.Fprintln(stderr, "\nExamples:")
		fmt.Fprintln(stderr, "  sweeper-history -runs 10       # Show the 10 most recent runs")
		fmt.Fprintln(stderr, "  sweeper-history -run 42        # Show what run 42 did")
		fmt.Fprintln(stderr, "  sweeper-history -recent 20     # Show the 20 most recent file outcomes")
		fmt.Fprintln(stderr, "  sweeper-history -failed        # Show files that could not be deleted")
		fmt.Fprintln(stderr, "  sweeper-history -stats -days 7 # Show statistics for the last week")
		fmt.Fprintln(stderr, "  sweeper-history -prune -days 90")
		return exitcodes.InvalidConfig
	}
	if *days <= 0 {
		fmt.Fprintf(stderr, "ERROR: -days must be positive, got %d\n", *days)
		return exitcodes.InvalidConfig
	}

	path := *dbPath
	if path == "" {
		explicit := false
		fs.Visit(func(f *flag.Flag) { explicit = explicit || f.Name == "config" })
		cfg, err := config.Load(*configPath, !explicit)
		if err != nil {
			fmt.Fprintf(stderr, "ERROR: Failed to load config: %v\n", err)
			return exitcodes.InvalidConfig
		}
		path = cfg.DatabasePath
	}
	if path == "" {
		fmt.Fprintln(stderr, "ERROR: No history database configured, set database_path or pass -db")
		return exitcodes.InvalidConfig
	}

	db, err := database.NewHistoryDB(path)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: Failed to open database %s: %v\n", path, err)
		return exitcodes.RuntimeError
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(stderr, "ERROR: Failed to close database: %v\n", err)
		}
	}()

	q := &query{out: stdout, db: db, jsonOutput: *jsonOutput}
	switch {
	case *prune:
		err = q.pruneHistory(*days)
	case *stats:
		err = q.showStats(*days)
	case *runs > 0:
		err = q.showRuns(*runs)
	case *runID > 0:
		err = q.showRecords(fmt.Sprintf("Outcomes of run %d", *runID))(db.GetRunDeletions(*runID))
	case *failed:
		err = q.showRecords("Files that could not be deleted")(db.GetFailedDeletions(100))
	default:
		err = q.showRecords("")(db.GetRecentDeletions(*recent))
	}

	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return exitcodes.RuntimeError
	}
	return exitcodes.Success
}

func (q *query) printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(q.out, string(data))
	return err
}

func (q *query) showStats(days int) error {
	stats, err := q.db.GetStats(days)
	if err != nil {
		return fmt.Errorf("failed to get statistics: %w", err)
	}
	if q.jsonOutput {
		return q.printJSON(stats)
	}

	fmt.Fprintf(q.out, "Sweep Statistics (Last %d days)\n", days)
	fmt.Fprintf(q.out, "Period: %s to %s\n\n", stats.StartDate.Format("2006-01-02"), stats.EndDate.Format("2006-01-02"))
	fmt.Fprintf(q.out, "Runs:             %d\n", stats.Runs)
	fmt.Fprintf(q.out, "Partially failed: %d\n", stats.FailedRuns)
	fmt.Fprintf(q.out, "Aborted:          %d\n", stats.AbortedRuns)
	fmt.Fprintf(q.out, "Files deleted:    %d\n", stats.FilesDeleted)
	fmt.Fprintf(q.out, "Files failed:     %d\n", stats.FilesFailed)
	fmt.Fprintf(q.out, "Space freed:      %s\n", ui.FormatBytes(stats.TotalSpaceFreed))

	if len(stats.ByReason) > 0 {
		reasons := make([]string, 0, len(stats.ByReason))
		for r := range stats.ByReason {
			reasons = append(reasons, r)
		}
		sort.Strings(reasons)

		fmt.Fprintln(q.out, "\nBy Reason:")
		for _, r := range reasons {
			fmt.Fprintf(q.out, "  %-20s %d\n", r, stats.ByReason[r])
		}
	}
	return nil
}

func (q *query) showRuns(limit int) error {
	runs, err := q.db.GetRecentRuns(limit)
	if err != nil {
		return fmt.Errorf("failed to get runs: %w", err)
	}
	if q.jsonOutput {
		return q.printJSON(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(q.out, "No runs found")
		return nil
	}

	w := tabwriter.NewWriter(q.out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tStarted\tState\tDeleted\tFailed\tFreed\tPattern\tRoot")
	_, _ = fmt.Fprintln(w, "--\t-------\t-----\t-------\t------\t-----\t-------\t----")
	for _, r := range runs {
		state := r.State
		if r.DryRun {
			state += " (dry run)"
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), state,
			r.Deleted, r.Failed, ui.FormatBytes(r.BytesFreed), r.Pattern, r.Root)
	}
	return w.Flush()
}

// showRecords returns a printer for a deletion query result under heading
func (q *query) showRecords(heading string) func([]database.DeletionRecord, error) error {
	return func(records []database.DeletionRecord, err error) error {
		if err != nil {
			return fmt.Errorf("failed to query outcomes: %w", err)
		}
		if q.jsonOutput {
			return q.printJSON(records)
		}
		if heading != "" {
			fmt.Fprintf(q.out, "%s\n\n", heading)
		}
		return q.printRecords(records)
	}
}

func (q *query) printRecords(records []database.DeletionRecord) error {
	if len(records) == 0 {
		fmt.Fprintln(q.out, "No records found")
		return nil
	}

	w := tabwriter.NewWriter(q.out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tRun\tTimestamp\tAction\tReason\tSize\tPath")
	_, _ = fmt.Fprintln(w, "--\t---\t---------\t------\t------\t----\t----")
	for _, r := range records {
		reason := r.Reason
		if reason == "" {
			reason = "-"
		}
		_, _ = fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.RunID, r.Timestamp.Format("2006-01-02 15:04:05"), r.Action,
			reason, ui.FormatBytes(r.Size), r.Path)
	}
	return w.Flush()
}

func (q *query) pruneHistory(days int) error {
	n, err := q.db.DeleteOldRecords(days)
	if err != nil {
		return fmt.Errorf("failed to prune history: %w", err)
	}
	if err := q.db.Vacuum(); err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}
	fmt.Fprintf(q.out, "Removed %d run(s) older than %d days\n", n, days)
	return nil
}
