// Package logging builds the structured logger shared by the workstation.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// ResolveLevel maps a level name to a slog level
func ResolveLevel(level string) (slog.Level, error) {
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s", level)
	}
}

// New returns a text logger writing to w at the named level. Debug loggers
// include the source location.
func New(level string, w io.Writer) (*slog.Logger, error) {
	lvl, err := ResolveLevel(level)
	if err != nil {
		return nil, err
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	})
	return slog.New(handler), nil
}

// Open returns a logger appending to the file at path, or writing to
// stderr when path is empty. The returned closer releases the file.
func Open(level, path string) (*slog.Logger, io.Closer, error) {
	if path == "" {
		logger, err := New(level, os.Stderr)
		return logger, io.NopCloser(nil), err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger, err := New(level, f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return logger, f, nil
}
