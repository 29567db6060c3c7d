package logger

import (
	"strings"
	"sync"
)

// Log levels accepted from configuration.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

var (
	globalLogger *Logger
	once         sync.Once
)

// Get returns the process-wide logger. The first call decides the level;
// later calls return the same instance regardless of the argument.
func Get(level string) *Logger {
	once.Do(func() {
		globalLogger = newZapLogger(normalizeLevel(level))
	})
	return globalLogger
}

// normalizeLevel lowercases and trims a configured level so "INFO " works.
func normalizeLevel(level string) string {
	return strings.ToLower(strings.TrimSpace(level))
}
