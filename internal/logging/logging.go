// Package logging sets up the global structured logger. The TUI owns the
// terminal, so log output goes to a rotating file; when logging is disabled
// everything is discarded.
package logging

import (
	"io"
	"log/slog"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Component names used as the "comp" attribute.
const (
	CompScanner = "scanner"
	CompCache   = "cache"
	CompSession = "session"
	CompUI      = "ui"
	CompCLI     = "cli"
)

// Config holds logging configuration.
type Config struct {
	// Enabled turns file logging on. When false, logs are discarded.
	Enabled bool

	// Dir is the directory for log files.
	Dir string

	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string

	// MaxSizeMB is the max size in MB before rotation (default: 5).
	MaxSizeMB int

	// MaxBackups is rotated files to keep (default: 3).
	MaxBackups int
}

var (
	globalMu     sync.RWMutex
	globalLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
)

// Init initializes the global logging system.
func Init(cfg Config) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if !cfg.Enabled || cfg.Dir == "" {
		globalLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
		return
	}

	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = 5
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = 3
	}

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	w := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Dir, "winfuzz.log"),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	}

	globalLogger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// ForComponent returns a logger tagged with the component name.
func ForComponent(comp string) *slog.Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger.With("comp", comp)
}
