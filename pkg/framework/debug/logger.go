// Package debug provides the leveled logger used by the host and its
// loader. Nothing on the audio goroutine logs.
package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// LogLevel represents the severity of a log message.
type LogLevel int32

const (
	// LogLevelDebug is for detailed debugging information.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo is for general informational messages.
	LogLevelInfo
	// LogLevelWarn is for warning messages.
	LogLevelWarn
	// LogLevelError is for error messages.
	LogLevelError
	// LogLevelOff disables all logging.
	LogLevelOff
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	case LogLevelOff:
		return "OFF"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a level name such as "debug" or "WARN" to a LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LogLevelDebug, nil
	case "INFO", "":
		return LogLevelInfo, nil
	case "WARN", "WARNING":
		return LogLevelWarn, nil
	case "ERROR":
		return LogLevelError, nil
	case "OFF", "NONE":
		return LogLevelOff, nil
	}
	return LogLevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Flags for logger output formatting.
const (
	FlagTime      = 1 << iota // Include timestamp
	FlagShortFile             // Include short file name and line number
	FlagLongFile              // Include full file path and line number
	FlagLevel                 // Include log level
	FlagPrefix                // Include prefix
)

// DefaultFlags are the default formatting flags.
const DefaultFlags = FlagTime | FlagShortFile | FlagLevel | FlagPrefix

// sink is the destination shared by a logger and all of its named children.
type sink struct {
	mu     sync.Mutex
	output io.Writer
}

// Logger is a leveled printf-style logger. Loggers derived with Named share
// the parent's output and serialize writes to it.
type Logger struct {
	sink   *sink
	level  *atomic.Int32
	prefix string
	flags  int
}

var defaultLogger = func() *Logger {
	l := New(os.Stderr, "", DefaultFlags)
	l.SetLevel(LogLevelInfo)
	return l
}()

// New creates a new logger instance.
func New(output io.Writer, prefix string, flags int) *Logger {
	level := &atomic.Int32{}
	level.Store(int32(LogLevelInfo))
	return &Logger{
		sink:   &sink{output: output},
		level:  level,
		prefix: prefix,
		flags:  flags,
	}
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	l := New(io.Discard, "", 0)
	l.SetLevel(LogLevelOff)
	return l
}

// NewFileLogger creates a logger that writes to a file.
func NewFileLogger(filename, prefix string, flags int) (*Logger, error) {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return New(file, prefix, flags), nil
}

// Named returns a child logger whose prefix is the parent's prefix joined
// with name by a dot. The child shares output and level with the parent.
func (l *Logger) Named(name string) *Logger {
	prefix := name
	if l.prefix != "" {
		prefix = l.prefix + "." + name
	}
	return &Logger{
		sink:   l.sink,
		level:  l.level,
		prefix: prefix,
		flags:  l.flags,
	}
}

// Prefix returns the logger prefix.
func (l *Logger) Prefix() string {
	return l.prefix
}

// SetOutput sets the output destination for the logger and its children.
func (l *Logger) SetOutput(w io.Writer) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.output = w
}

// SetLevel sets the minimum log level for the logger and its children.
func (l *Logger) SetLevel(level LogLevel) {
	l.level.Store(int32(level))
}

// Level returns the minimum log level.
func (l *Logger) Level() LogLevel {
	return LogLevel(l.level.Load())
}

// Enabled reports whether a message at level would be written.
func (l *Logger) Enabled(level LogLevel) bool {
	current := l.Level()
	return current != LogLevelOff && level >= current
}

func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	if !l.Enabled(level) {
		return
	}

	var sb strings.Builder

	if l.flags&FlagTime != 0 {
		sb.WriteString(time.Now().Format("2006-01-02 15:04:05.000 "))
	}
	if l.flags&FlagLevel != 0 {
		fmt.Fprintf(&sb, "[%s] ", level)
	}
	if l.flags&FlagPrefix != 0 && l.prefix != "" {
		fmt.Fprintf(&sb, "[%s] ", l.prefix)
	}
	if l.flags&(FlagShortFile|FlagLongFile) != 0 {
		// Skip log() and Debug/Info/etc
		_, file, line, ok := runtime.Caller(2)
		if ok {
			if l.flags&FlagShortFile != 0 {
				file = filepath.Base(file)
			}
			fmt.Fprintf(&sb, "%s:%d: ", file, line)
		}
	}

	msg := fmt.Sprintf(format, args...)
	sb.WriteString(msg)
	if !strings.HasSuffix(msg, "\n") {
		sb.WriteString("\n")
	}

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	_, _ = io.WriteString(l.sink.output, sb.String())
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(LogLevelDebug, format, args...)
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(LogLevelInfo, format, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(LogLevelWarn, format, args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(LogLevelError, format, args...)
}

// Default returns the process-wide logger writing to stderr.
func Default() *Logger {
	return defaultLogger
}
