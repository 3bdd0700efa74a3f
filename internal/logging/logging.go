package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sweeper/internal/config"
)

// Logger wraps the standard logger with level prefixes and key/value pairs
type Logger struct {
	*log.Logger
	debug bool
}

// Wrap adapts an existing *log.Logger. A nil logger falls back to log.Default().
func Wrap(l *log.Logger, debug bool) *Logger {
	if l == nil {
		l = log.Default()
	}
	return &Logger{Logger: l, debug: debug}
}

// Discard returns a logger that drops everything
func Discard() *Logger {
	return Wrap(log.New(io.Discard, "", 0), false)
}

func (l *Logger) Info(msg string, args ...interface{}) {
	l.logWithLevel("INFO", msg, args...)
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	l.logWithLevel("WARN", msg, args...)
}

func (l *Logger) Error(msg string, args ...interface{}) {
	l.logWithLevel("ERROR", msg, args...)
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	if !l.debug {
		return
	}
	l.logWithLevel("DEBUG", msg, args...)
}

func (l *Logger) logWithLevel(level, msg string, args ...interface{}) {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", level, msg)
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
		} else {
			fmt.Fprintf(&b, " %v", args[i])
		}
	}
	l.Logger.Println(b.String())
}

// New creates a logger writing to stderr and, when configured, to a rotated log file.
// The returned closer releases the log file and is never nil.
func New(cfg *config.Config) (*Logger, func() error) {
	noop := func() error { return nil }
	flags := log.LstdFlags | log.Lmicroseconds

	if cfg == nil || cfg.Logging.File == "" {
		return Wrap(log.New(os.Stderr, "", flags), cfg != nil && cfg.Logging.Debug), noop
	}

	filePath := cfg.Logging.File
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		log.Printf("failed to ensure log directory for %s: %v", filePath, err)
	}

	rotateDays := 30
	if cfg.Logging.RotationDays > 0 {
		rotateDays = cfg.Logging.RotationDays
	}
	rotateLogsIfNeeded(filePath, rotateDays, time.Now())

	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		log.Printf("failed to open log file %s: %v", filePath, err)
		return Wrap(log.New(os.Stderr, "", flags), cfg.Logging.Debug), noop
	}

	mw := io.MultiWriter(os.Stderr, f)
	return Wrap(log.New(mw, "", flags), cfg.Logging.Debug), f.Close
}

// rotateLogsIfNeeded renames the log file once it is older than rotationDays
func rotateLogsIfNeeded(logPath string, rotationDays int, now time.Time) {
	info, err := os.Stat(logPath)
	if err != nil {
		return
	}

	cutoffTime := now.AddDate(0, 0, -rotationDays)
	if !info.ModTime().Before(cutoffTime) {
		return
	}

	rotatedPath := logPath + "." + info.ModTime().Format("20060102-150405")
	if err := os.Rename(logPath, rotatedPath); err != nil {
		log.Printf("failed to rotate log file: %v", err)
		return
	}

	cleanupOldLogs(logPath, cutoffTime)
}

// cleanupOldLogs removes rotated siblings of logPath modified before cutoff
func cleanupOldLogs(logPath string, cutoff time.Time) {
	logDir := filepath.Dir(logPath)
	prefix := filepath.Base(logPath) + "."

	entries, err := os.ReadDir(logDir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			fullPath := filepath.Join(logDir, entry.Name())
			if err := os.Remove(fullPath); err != nil {
				log.Printf("failed to remove old log file %s: %v", fullPath, err)
			}
		}
	}
}
