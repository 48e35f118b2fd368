package main

import (
	"sort"

	"github.com/benjaminschreck/go-pattern/pkg/pattern"
	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

// commonlogSink forwards engine log records to a commonlog logger.
type commonlogSink struct {
	log commonlog.Logger
}

func (s commonlogSink) Log(level pattern.LogLevel, message string, fields pattern.Fields) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	kv := make([]any, 0, 2*len(keys))
	for _, k := range keys {
		kv = append(kv, k, fields[k])
	}

	switch level {
	case pattern.LogDebug:
		s.log.Debug(message, kv...)
	case pattern.LogInfo:
		s.log.Info(message, kv...)
	case pattern.LogWarn:
		s.log.Warning(message, kv...)
	default:
		s.log.Error(message, kv...)
	}
}

// newLogger configures the commonlog backend and returns an engine logger
// that writes through it. A negative verbosity keeps the configured level.
func newLogger(verbosity int, configured string) *pattern.Logger {
	level := pattern.ParseLogLevel(configured)
	switch {
	case verbosity == 0:
		level = pattern.LogWarn
	case verbosity == 1:
		level = pattern.LogInfo
	case verbosity > 1:
		level = pattern.LogDebug
	}

	// commonlog: 0 shows notices and worse, 1 info, 2 debug
	backend := 0
	switch level {
	case pattern.LogInfo:
		backend = 1
	case pattern.LogDebug:
		backend = 2
	case pattern.LogOff:
		backend = -1
	}
	commonlog.Configure(backend, nil)

	return pattern.NewLoggerWithSink(commonlogSink{log: commonlog.GetLogger("pattern")}, level)
}
