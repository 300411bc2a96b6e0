package logger

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// MaxLogLines caps the log file size; the oldest lines are trimmed when the
// cap is exceeded.
const MaxLogLines = 5000

// LogLevel represents the logging level
type LogLevel int

const (
	LogLevelTrace LogLevel = iota
	LogLevelDebug
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

func (l LogLevel) String() string {
	switch l {
	case LogLevelTrace:
		return "TRACE"
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel parses a string into a LogLevel, defaulting to info.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToUpper(s) {
	case "TRACE":
		return LogLevelTrace
	case "DEBUG":
		return LogLevelDebug
	case "INFO":
		return LogLevelInfo
	case "WARN", "WARNING":
		return LogLevelWarn
	case "ERROR":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// Logger writes leveled, timestamped lines to a file, trimming it back to
// MaxLogLines whenever it grows past the cap.
type Logger struct {
	mu        sync.Mutex
	file      *os.File
	level     LogLevel
	lineCount int
}

var global *Logger

// fallback covers log calls made before New, e.g. in client mode.
var fallback = &Logger{file: os.Stderr, level: LogLevelInfo}

// New creates the logger and installs it as the package-level target.
func New(file *os.File, level LogLevel) *Logger {
	l := &Logger{file: file, level: level}
	l.countExistingLines()
	global = l
	return l
}

// SetLevel changes the minimum level that gets written.
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Logger) log(level LogLevel, format string, v ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.level {
		return
	}

	fmt.Fprintf(l.file, "%s [%s] %s\n",
		time.Now().Format("2006/01/02 15:04:05"), level, fmt.Sprintf(format, v...))

	l.lineCount++
	if l.lineCount > MaxLogLines {
		l.trim()
	}
}

func (l *Logger) Debug(format string, v ...any) { l.log(LogLevelDebug, format, v...) }
func (l *Logger) Info(format string, v ...any)  { l.log(LogLevelInfo, format, v...) }
func (l *Logger) Warn(format string, v ...any)  { l.log(LogLevelWarn, format, v...) }
func (l *Logger) Error(format string, v ...any) { l.log(LogLevelError, format, v...) }

// Fatal logs at error level and exits with code 1.
func (l *Logger) Fatal(format string, v ...any) {
	l.log(LogLevelError, format, v...)
	os.Exit(1)
}

// Write implements io.Writer so the standard log package can be pointed at
// this logger.
func (l *Logger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n, err := l.file.Write(p)
	if err != nil {
		return n, err
	}
	l.lineCount += strings.Count(string(p), "\n")
	if l.lineCount > MaxLogLines {
		l.trim()
	}
	return n, nil
}

// Close closes the underlying file.
func (l *Logger) Close() error {
	return l.file.Close()
}

// countExistingLines seeds lineCount from the file left by a previous run.
func (l *Logger) countExistingLines() {
	l.file.Seek(0, 0)
	scanner := bufio.NewScanner(l.file)
	count := 0
	for scanner.Scan() {
		count++
	}
	l.lineCount = count
	l.file.Seek(0, 2)
}

// trim rewrites the file keeping only the last MaxLogLines lines.
// Caller holds the mutex.
func (l *Logger) trim() {
	l.file.Seek(0, 0)
	scanner := bufio.NewScanner(l.file)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) > MaxLogLines {
		lines = lines[len(lines)-MaxLogLines:]
	}

	l.file.Truncate(0)
	l.file.Seek(0, 0)
	for _, line := range lines {
		l.file.WriteString(line + "\n")
	}
	l.lineCount = len(lines)
}

// Trace returns a function that logs the operation duration when called.
// Usage: defer logger.Trace("operation")()
func Trace(name string) func() {
	l := global
	if l == nil || l.level > LogLevelTrace {
		return func() {}
	}
	start := time.Now()
	return func() {
		l.log(LogLevelTrace, "%s: %v", name, time.Since(start))
	}
}

// Package-level logging functions using the installed logger.

func current() *Logger {
	if global != nil {
		return global
	}
	return fallback
}

func Debug(format string, v ...any) { current().Debug(format, v...) }
func Info(format string, v ...any)  { current().Info(format, v...) }
func Warn(format string, v ...any)  { current().Warn(format, v...) }
func Error(format string, v ...any) { current().Error(format, v...) }
func Fatal(format string, v ...any) { current().Fatal(format, v...) }
