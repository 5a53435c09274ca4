// Package logger holds the process-wide structured logger.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// L is the global logger instance. It's initialized to discard all output by default.
// Call Init() to enable logging.
var L = slog.New(slog.NewTextHandler(io.Discard, nil))

const (
	logPrefix     = "dfseg-"
	logSuffix     = ".log"
	retentionDays = 30
)

// Options configures the logger initialization.
type Options struct {
	Enabled bool       // If false, all logging is discarded
	LogDir  string     // Directory for daily log files. Empty logs to Writer.
	Writer  io.Writer  // Sink when LogDir is empty. Default: os.Stderr
	Level   slog.Level // Minimum log level. Default: LevelInfo
	JSON    bool       // JSON handler instead of text
}

// current is the sink behind L when Init opened a log file.
var current io.Closer

// Init configures logging. Call from main() before any log calls.
// If opts.Enabled is false, all log output is discarded. A log file opened by
// a previous Init is closed once the new logger is installed.
func Init(opts Options) error {
	l, c, err := New(opts)
	if err != nil {
		return err
	}
	prev := current
	L, current = l, c
	if prev != nil {
		return prev.Close()
	}
	return nil
}

// Close restores the discard logger and closes the log file, if any.
func Close() error {
	L = slog.New(slog.NewTextHandler(io.Discard, nil))
	c := current
	current = nil
	if c != nil {
		return c.Close()
	}
	return nil
}

// New builds a logger from opts without installing it. The returned closer
// is non-nil only when a log file was opened and is owned by the caller.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	if !opts.Enabled {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), nil, nil
	}

	w := opts.Writer
	var c io.Closer
	if opts.LogDir != "" {
		if err := os.MkdirAll(opts.LogDir, 0o755); err != nil {
			return nil, nil, err
		}

		// Clean up old logs (best-effort, ignore errors)
		cleanOldLogs(opts.LogDir)

		filename := filepath.Join(opts.LogDir, logPrefix+time.Now().Format("2006-01-02")+logSuffix)
		f, err := os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, err
		}
		w, c = f, f
	}
	if w == nil {
		w = os.Stderr
	}

	hopts := &slog.HandlerOptions{Level: opts.Level}
	if opts.JSON {
		return slog.New(slog.NewJSONHandler(w, hopts)), c, nil
	}
	return slog.New(slog.NewTextHandler(w, hopts)), c, nil
}

// ParseLevel maps "debug", "info", "warn" and "error" to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("logger: unknown level %q", s)
	}
}

// cleanOldLogs removes log files older than retentionDays.
func cleanOldLogs(logDir string) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	entries, err := os.ReadDir(logDir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, logPrefix) || !strings.HasSuffix(name, logSuffix) {
			continue
		}

		// Parse date from filename: dfseg-2024-01-05.log
		dateStr := strings.TrimPrefix(strings.TrimSuffix(name, logSuffix), logPrefix)
		logDate, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			continue
		}

		if logDate.Before(cutoff) {
			os.Remove(filepath.Join(logDir, name))
		}
	}
}
