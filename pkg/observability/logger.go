package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levelNames = [...]string{"debug", "info", "warn", "error"}

func (l LogLevel) String() string {
	if l < DebugLevel || l > ErrorLevel {
		return fmt.Sprintf("LogLevel(%d)", int(l))
	}
	return strings.ToUpper(levelNames[l])
}

// ParseLogLevel converts a level name (debug, info, warn, error) to a
// LogLevel. The empty string is info.
func ParseLogLevel(level string) (LogLevel, error) {
	name := strings.ToLower(strings.TrimSpace(level))
	switch name {
	case "":
		return InfoLevel, nil
	case "warning":
		return WarnLevel, nil
	}
	if i := slices.Index(levelNames[:], name); i >= 0 {
		return LogLevel(i), nil
	}
	return InfoLevel, fmt.Errorf("invalid log level %q", level)
}

// slog levels are spaced 4 apart with info at 0
func (l LogLevel) slogLevel() slog.Level {
	return slog.Level(4 * (int(l) - int(InfoLevel)))
}

// Logger writes structured JSON lines through log/slog
type Logger struct {
	logger *slog.Logger
	level  LogLevel
}

// NewLogger creates a logger emitting level and above to output (stdout when nil)
func NewLogger(level LogLevel, output io.Writer) *Logger {
	if output == nil {
		output = os.Stdout
	}
	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{Level: level.slogLevel()})
	return &Logger{logger: slog.New(handler), level: level}
}

// NewNopLogger returns a logger that discards everything
func NewNopLogger() *Logger {
	return NewLogger(ErrorLevel, io.Discard)
}

// Level returns the minimum level the logger emits
func (l *Logger) Level() LogLevel {
	return l.level
}

// WithField returns a child logger carrying key=value
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{logger: l.logger.With(key, value), level: l.level}
}

// WithFields returns a child logger carrying every field, in key order
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		args = append(args, k, fields[k])
	}
	return &Logger{logger: l.logger.With(args...), level: l.level}
}

// WithError returns a child logger carrying err, or l itself when err is nil
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.WithField("error", err.Error())
}

func (l *Logger) log(level LogLevel, message string) {
	l.logger.Log(context.Background(), level.slogLevel(), message)
}

func (l *Logger) logf(level LogLevel, format string, args []interface{}) {
	if level < l.level {
		return
	}
	l.log(level, fmt.Sprintf(format, args...))
}

func (l *Logger) Debug(message string) { l.log(DebugLevel, message) }
func (l *Logger) Info(message string)  { l.log(InfoLevel, message) }
func (l *Logger) Warn(message string)  { l.log(WarnLevel, message) }
func (l *Logger) Error(message string) { l.log(ErrorLevel, message) }

func (l *Logger) Debugf(format string, args ...interface{}) { l.logf(DebugLevel, format, args) }
func (l *Logger) Infof(format string, args ...interface{})  { l.logf(InfoLevel, format, args) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.logf(WarnLevel, format, args) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.logf(ErrorLevel, format, args) }

type loggerKey struct{}

// WithLogger stores logger in ctx
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger returns the logger stored in ctx, or a discarding logger
func GetLogger(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*Logger); ok {
		return logger
	}
	return NewNopLogger()
}

// FromContext returns the context logger enriched with the active trace
func FromContext(ctx context.Context) *Logger {
	return UpdateLoggerWithTraceContext(ctx, GetLogger(ctx))
}
