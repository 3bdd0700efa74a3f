package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sweeper/internal/database"
	"sweeper/internal/exitcodes"
	"sweeper/internal/scan"
)

// seedHistory creates a database with one recent and one 90 day old run
func seedHistory(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	db, err := database.NewHistoryDB(path)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	old, err := db.StartRun("/srv/old", "*.idl", false, time.Now().AddDate(0, 0, -90))
	if err != nil {
		t.Fatal(err)
	}
	if err := db.RecordDeletion(old, database.ActionDelete, scan.Candidate{Path: "/srv/old/a.idl", Size: 10}, "", ""); err != nil {
		t.Fatal(err)
	}
	if err := db.FinishRun(old, database.RunSummary{State: "COMPLETED", Confirmed: true, Deleted: 1, BytesFreed: 10, FinishedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}

	recent, err := db.StartRun("/srv/proj", "*.idl", false, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if err := db.RecordDeletion(recent, database.ActionError, scan.Candidate{Path: "/srv/proj/locked.idl"}, "permission_denied", "denied"); err != nil {
		t.Fatal(err)
	}
	if err := db.FinishRun(recent, database.RunSummary{State: "PARTIALLY_FAILED", Confirmed: true, Failed: 1, FinishedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunsJSON(t *testing.T) {
	db := seedHistory(t)

	code, out, errOut := runCLI(t, "-db", db, "-runs", "5", "-json")
	if code != exitcodes.Success {
		t.Fatalf("exit = %d, stderr = %s", code, errOut)
	}

	var runs []database.RunRecord
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(runs) != 2 || runs[0].Root != "/srv/proj" || runs[0].State != "PARTIALLY_FAILED" {
		t.Errorf("runs = %+v", runs)
	}
}

func TestRunsTable(t *testing.T) {
	db := seedHistory(t)

	code, out, _ := runCLI(t, "-db", db, "-runs", "5")
	if code != exitcodes.Success {
		t.Fatalf("exit = %d", code)
	}
	for _, want := range []string{"PARTIALLY_FAILED", "/srv/proj", "COMPLETED", "10 B"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFailedOutcomes(t *testing.T) {
	db := seedHistory(t)

	code, out, _ := runCLI(t, "-db", db, "-failed")
	if code != exitcodes.Success {
		t.Fatalf("exit = %d", code)
	}
	if !strings.Contains(out, "/srv/proj/locked.idl") || !strings.Contains(out, "permission_denied") {
		t.Errorf("output = %s", out)
	}
	if strings.Contains(out, "/srv/old/a.idl") {
		t.Errorf("successful deletion listed as failed:\n%s", out)
	}
}

func TestStatsJSON(t *testing.T) {
	db := seedHistory(t)

	code, out, _ := runCLI(t, "-db", db, "-stats", "-days", "7", "-json")
	if code != exitcodes.Success {
		t.Fatalf("exit = %d", code)
	}
	var stats database.Stats
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if stats.Runs != 1 || stats.FailedRuns != 1 || stats.ByReason["permission_denied"] != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestPrune(t *testing.T) {
	db := seedHistory(t)

	code, out, errOut := runCLI(t, "-db", db, "-prune", "-days", "30")
	if code != exitcodes.Success {
		t.Fatalf("exit = %d, stderr = %s", code, errOut)
	}
	if !strings.Contains(out, "Removed 1 run(s) older than 30 days") {
		t.Errorf("output = %s", out)
	}

	_, out, _ = runCLI(t, "-db", db, "-runs", "10", "-json")
	var runs []database.RunRecord
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Root != "/srv/proj" {
		t.Errorf("runs after prune = %+v", runs)
	}
}

func TestDatabasePathFromConfig(t *testing.T) {
	db := seedHistory(t)
	cfg := filepath.Join(t.TempDir(), "sweeper.yaml")
	if err := os.WriteFile(cfg, []byte(fmt.Sprintf("database_path: %s\n", db)), 0o644); err != nil {
		t.Fatal(err)
	}

	code, out, _ := runCLI(t, "-config", cfg, "-recent", "1")
	if code != exitcodes.Success {
		t.Fatalf("exit = %d", code)
	}
	if !strings.Contains(out, "/srv/proj/locked.idl") {
		t.Errorf("output = %s", out)
	}
}

func TestUsageErrors(t *testing.T) {
	db := seedHistory(t)
	missingCfg := filepath.Join(t.TempDir(), "missing.yaml")
	emptyCfg := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(emptyCfg, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
	}{
		{"no query", []string{"-db", db}},
		{"unknown flag", []string{"-bogus"}},
		{"non-positive days", []string{"-db", db, "-stats", "-days", "0"}},
		{"explicit config missing", []string{"-config", missingCfg, "-runs", "1"}},
		{"no database configured", []string{"-config", emptyCfg, "-runs", "1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code, _, _ := runCLI(t, tt.args...); code != exitcodes.InvalidConfig {
				t.Errorf("exit = %d, want %d", code, exitcodes.InvalidConfig)
			}
		})
	}
}
