package utils

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Logger provides different logging levels
type Logger struct {
	debug   bool
	verbose bool

	mu     sync.Mutex
	writer io.Writer // os.Stdout unless a file or test writer is attached
	file   *os.File
	now    func() time.Time
}

// NewLogger creates a new console logger with the specified levels
func NewLogger(debug, verbose bool) *Logger {
	return NewLoggerWithWriter(debug, verbose, os.Stdout)
}

// NewLoggerWithWriter creates a logger that writes to w
func NewLoggerWithWriter(debug, verbose bool, w io.Writer) *Logger {
	if w == nil {
		w = io.Discard
	}
	return &Logger{
		debug:   debug,
		verbose: verbose,
		writer:  w,
		now:     time.Now,
	}
}

// NewLoggerWithFile creates a logger that writes to both stdout and a file.
// Unless retain is set, any log file left by a previous run is truncated.
func NewLoggerWithFile(debug, verbose bool, logFilePath string, retain bool) (*Logger, error) {
	if err := EnsureDirForFile(logFilePath); err != nil {
		return nil, fmt.Errorf("failed to create log directory for %s: %w", logFilePath, err)
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if !retain {
		flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	}

	logFile, err := os.OpenFile(logFilePath, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", logFilePath, err)
	}

	l := NewLoggerWithWriter(debug, verbose, io.MultiWriter(os.Stdout, logFile))
	l.file = logFile
	return l, nil
}

// Close releases the log file, if any
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// DebugEnabled reports whether debug output is on
func (l *Logger) DebugEnabled() bool { return l.debug }

// Info logs informational messages (always shown)
func (l *Logger) Info(format string, args ...interface{}) {
	l.logf("INFO", format, args...)
}

// Warn logs recoverable problems (always shown)
func (l *Logger) Warn(format string, args ...interface{}) {
	l.logf("WARN", format, args...)
}

// Debug logs debug messages (only if debug enabled)
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.debug {
		l.logf("DEBUG", format, args...)
	}
}

// Verbose logs verbose messages (only if verbose enabled)
func (l *Logger) Verbose(format string, args ...interface{}) {
	if l.verbose {
		l.logf("VERBOSE", format, args...)
	}
}

// Error logs error messages (always shown)
func (l *Logger) Error(format string, args ...interface{}) {
	l.logf("ERROR", format, args...)
}

func (l *Logger) logf(level, format string, args ...interface{}) {
	timestamp := l.now().Format("15:04:05")
	msg := fmt.Sprintf(format, args...)

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.writer, "[%s] %s: %s\n", timestamp, level, msg)
}
