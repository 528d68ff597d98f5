package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

// Logger is a leveled wrapper around the standard library logger
type Logger struct {
	base  *log.Logger
	debug bool
	file  *os.File
}

// New creates a logger writing to w
func New(w io.Writer, debug bool) *Logger {
	return &Logger{
		base:  log.New(w, "", log.LstdFlags),
		debug: debug,
	}
}

// NewFromConfig creates a logger that appends to path, or writes to stderr
// when path is empty
func NewFromConfig(path string, debug bool) (*Logger, error) {
	if path == "" {
		return New(os.Stderr, debug), nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	l := New(file, debug)
	l.file = file
	return l, nil
}

// Discard returns a logger that drops everything
func Discard() *Logger {
	return New(io.Discard, false)
}

func (l *Logger) Debugf(format string, args ...any) {
	if !l.debug {
		return
	}
	l.base.Printf("[DEBUG] "+format, args...)
}

func (l *Logger) Infof(format string, args ...any) {
	l.base.Printf("[INFO] "+format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.base.Printf("[WARN] "+format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.base.Printf("[ERROR] "+format, args...)
}

// Writer returns the destination of log lines
func (l *Logger) Writer() io.Writer {
	return l.base.Writer()
}

// Close releases the log file if one was opened
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

var defaultLogger = New(os.Stderr, false)

// Default returns the process-wide logger
func Default() *Logger {
	return defaultLogger
}

// SetDefault replaces the process-wide logger
func SetDefault(l *Logger) {
	if l != nil {
		defaultLogger = l
	}
}
