package pattern

import (
	"fmt"
	"io"
	"maps"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type LogLevel int

const (
	LogDebug LogLevel = iota
	LogInfo
	LogWarn
	LogError
	LogOff
)

func (l LogLevel) String() string {
	switch l {
	case LogDebug:
		return "DEBUG"
	case LogInfo:
		return "INFO"
	case LogWarn:
		return "WARN"
	case LogError:
		return "ERROR"
	case LogOff:
		return "OFF"
	default:
		return "UNKNOWN"
	}
}

type Fields map[string]interface{}

// Sink receives log records that passed the level filter. It lets a Logger
// forward to another logging backend instead of writing lines itself.
type Sink interface {
	Log(level LogLevel, message string, fields Fields)
}

// writerSink formats records as single lines on an io.Writer
type writerSink struct {
	w io.Writer
}

func (s writerSink) Log(level LogLevel, message string, fields Fields) {
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	line := fmt.Sprintf("%s [%s] %s", timestamp, level.String(), message)
	if len(fields) > 0 {
		line += " " + formatFields(fields)
	}
	fmt.Fprintln(s.w, line)
}

func formatFields(fields Fields) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, fields[k])
	}
	return strings.Join(parts, " ")
}

// Logger filters records by level and hands them to a Sink. Loggers derived
// with WithField share the level and the sink lock of their parent.
type Logger struct {
	sink   Sink
	level  *atomic.Int32
	fields Fields
	mu     *sync.Mutex
}

var globalLogger atomic.Pointer[Logger]

// ParseLogLevel maps a level name to a LogLevel. Unknown names yield LogInfo.
func ParseLogLevel(levelStr string) LogLevel {
	switch strings.ToLower(levelStr) {
	case "debug":
		return LogDebug
	case "info":
		return LogInfo
	case "warn":
		return LogWarn
	case "error":
		return LogError
	case "off":
		return LogOff
	default:
		return LogInfo
	}
}

// NewLogger creates a logger that writes formatted lines to w.
func NewLogger(w io.Writer, level LogLevel) *Logger {
	if w == nil {
		w = io.Discard
	}
	return NewLoggerWithSink(writerSink{w: w}, level)
}

// NewLoggerWithSink creates a logger that hands records to sink.
func NewLoggerWithSink(sink Sink, level LogLevel) *Logger {
	l := &Logger{sink: sink, level: new(atomic.Int32), fields: Fields{}, mu: new(sync.Mutex)}
	l.level.Store(int32(level))
	return l
}

func (l *Logger) SetLevel(level LogLevel) {
	l.level.Store(int32(level))
}

func (l *Logger) Level() LogLevel {
	return LogLevel(l.level.Load())
}

func (l *Logger) IsDebugMode() bool {
	return l.Level() == LogDebug
}

func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.WithFields(Fields{key: value})
}

func (l *Logger) WithFields(fields Fields) *Logger {
	merged := make(Fields, len(l.fields)+len(fields))
	maps.Copy(merged, l.fields)
	maps.Copy(merged, fields)
	return &Logger{sink: l.sink, level: l.level, fields: merged, mu: l.mu}
}

func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	if level < l.Level() {
		return
	}

	message := fmt.Sprintf(format, args...)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.sink.Log(level, message, l.fields)
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(LogDebug, format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.log(LogInfo, format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(LogWarn, format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.log(LogError, format, args...)
}

// SetLogger replaces the process-wide logger used by engines created without
// WithLogger.
func SetLogger(logger *Logger) {
	globalLogger.Store(logger)
}

// GetLogger returns the process-wide logger. It is created on first use,
// writing to stderr at the level of the global configuration.
func GetLogger() *Logger {
	if l := globalLogger.Load(); l != nil {
		return l
	}
	l := NewLogger(os.Stderr, ParseLogLevel(GetGlobalConfig().LogLevel))
	if globalLogger.CompareAndSwap(nil, l) {
		return l
	}
	return globalLogger.Load()
}

// UpdateLoggerFromConfig applies the global configuration's level to the
// process-wide logger.
func UpdateLoggerFromConfig() {
	GetLogger().SetLevel(ParseLogLevel(GetGlobalConfig().LogLevel))
}
