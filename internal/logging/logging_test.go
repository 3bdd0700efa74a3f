package logging

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sweeper/internal/config"
)

func TestLeveledOutput(t *testing.T) {
	var buf bytes.Buffer
	l := Wrap(log.New(&buf, "", 0), false)

	l.Info("deleted", "path", "/tmp/a.idl", "size", 12)
	l.Debug("hidden")
	l.Error("odd", "dangling")

	got := buf.String()
	if !strings.Contains(got, "[INFO] deleted path=/tmp/a.idl size=12\n") {
		t.Errorf("unexpected info line: %q", got)
	}
	if strings.Contains(got, "hidden") {
		t.Error("debug line should be suppressed")
	}
	if !strings.Contains(got, "[ERROR] odd dangling\n") {
		t.Errorf("unexpected error line: %q", got)
	}
}

func TestDebugEnabled(t *testing.T) {
	var buf bytes.Buffer
	l := Wrap(log.New(&buf, "", 0), true)
	l.Debug("visible", "k", "v")
	if buf.String() != "[DEBUG] visible k=v\n" {
		t.Errorf("got %q", buf.String())
	}
}

func TestNewWritesLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "sweeper.log")
	cfg := config.Default()
	cfg.Logging.File = path

	l, closeFn := New(cfg)
	l.Info("hello")
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "[INFO] hello") {
		t.Errorf("log file missing entry: %q", data)
	}
}

func TestRotateLogsIfNeeded(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sweeper.log")
	if err := os.WriteFile(path, []byte("old\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	old := time.Now().AddDate(0, 0, -10)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}

	rotateLogsIfNeeded(path, 5, time.Now())

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected %s to be rotated away", path)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	// The rotated file keeps the old mtime and is past the cutoff, so it is pruned too.
	if len(entries) != 0 {
		t.Errorf("expected rotated log to be pruned, found %d entries", len(entries))
	}
}

func TestRotateSkipsFreshLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sweeper.log")
	if err := os.WriteFile(path, []byte("fresh\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	rotateLogsIfNeeded(path, 5, time.Now())
	if _, err := os.Stat(path); err != nil {
		t.Errorf("fresh log should stay in place: %v", err)
	}
}
