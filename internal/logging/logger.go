// Package logging appends timestamped diagnostics to a log file. The TUI
// owns the terminal, so nothing in this program writes to stdout.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log entry.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Logger writes timestamped lines to a file. A nil logger discards
// everything, so callers never need to guard their log sites.
type Logger struct {
	file *os.File
	mu   sync.Mutex
}

// New creates (or reuses) the log file at the given path.
func New(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}
	return &Logger{file: f}, nil
}

// Close releases the file handle.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Append writes a single entry at the given level.
func (l *Logger) Append(level Level, format string, args ...any) {
	if l == nil || l.file == nil {
		return
	}
	line := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.file, "%s %-5s %s\n", time.Now().UTC().Format(time.RFC3339), string(level), line)
}

// Info logs an informational entry.
func (l *Logger) Info(format string, args ...any) { l.Append(LevelInfo, format, args...) }

// Warn logs a warning entry.
func (l *Logger) Warn(format string, args ...any) { l.Append(LevelWarn, format, args...) }

// Error logs an error entry.
func (l *Logger) Error(format string, args ...any) { l.Append(LevelError, format, args...) }
