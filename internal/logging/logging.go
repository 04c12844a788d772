// Package logging sets up the daemon's slog logger. The level is held in a
// shared LevelVar so it can change at runtime from the HTTP API or a config
// reload.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jmylchreest/pixeld/internal/config"
)

// LogLevel defines log level types
type LogLevel string

// Log level constants - using values from config package
const (
	LogLevelDebug LogLevel = LogLevel(config.LogLevelDebug)
	LogLevelInfo  LogLevel = LogLevel(config.LogLevelInfo)
	LogLevelWarn  LogLevel = LogLevel(config.LogLevelWarn)
	LogLevelError LogLevel = LogLevel(config.LogLevelError)
)

// LogFormat defines log format types
type LogFormat string

// Log format constants - using values from config package
const (
	LogFormatText    LogFormat = LogFormat(config.LogFormatText)
	LogFormatJSON    LogFormat = LogFormat(config.LogFormatJSON)
	LogFormatJournal LogFormat = LogFormat(config.LogFormatJournal)
)

var level = new(slog.LevelVar)

// GetLogLevel converts a string log level to slog.Level
func GetLogLevel(l string) slog.Level {
	switch strings.ToLower(l) {
	case string(LogLevelDebug):
		return slog.LevelDebug
	case string(LogLevelWarn), "warning":
		return slog.LevelWarn
	case string(LogLevelError):
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LevelString is the config name of a slog level.
func LevelString(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return string(LogLevelError)
	case l >= slog.LevelWarn:
		return string(LogLevelWarn)
	case l >= slog.LevelInfo:
		return string(LogLevelInfo)
	default:
		return string(LogLevelDebug)
	}
}

// IsValidLogLevel reports whether l names a level.
func IsValidLogLevel(l string) bool {
	switch strings.ToLower(l) {
	case string(LogLevelDebug), string(LogLevelInfo), string(LogLevelWarn), "warning", string(LogLevelError):
		return true
	}
	return false
}

// ValidateLogLevel ensures the provided level is valid, returning a default if not
func ValidateLogLevel(l string) string {
	if !IsValidLogLevel(l) {
		return string(LogLevelInfo)
	}
	return LevelString(GetLogLevel(l))
}

// ValidateLogFormat ensures the provided format is valid, returning a default if not
func ValidateLogFormat(format string) string {
	switch format {
	case string(LogFormatText), string(LogFormatJSON), string(LogFormatJournal):
		return format
	default:
		return string(LogFormatText)
	}
}

// SetupLogger creates a logger writing to stderr. Its level follows
// SetLevel for the life of the process.
func SetupLogger(l string, format string) *slog.Logger {
	return newLogger(os.Stderr, l, format)
}

func newLogger(w io.Writer, l string, format string) *slog.Logger {
	level.Set(GetLogLevel(ValidateLogLevel(l)))

	opts := &slog.HandlerOptions{Level: level}
	switch LogFormat(ValidateLogFormat(format)) {
	case LogFormatJSON:
		return slog.New(slog.NewJSONHandler(w, opts))
	case LogFormatJournal:
		if IsJournalAvailable() {
			return slog.New(NewJournalHandler(level))
		}
		return slog.New(slog.NewTextHandler(w, opts))
	default:
		return slog.New(slog.NewTextHandler(w, opts))
	}
}

// SetupErrorLogger creates a simple text logger for reporting errors during startup.
func SetupErrorLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// SetAsDefaultLogger sets a logger as the default logger
func SetAsDefaultLogger(logger *slog.Logger) {
	slog.SetDefault(logger)
}

// SetLevel changes the level of every logger made by SetupLogger.
func SetLevel(l string) {
	level.Set(GetLogLevel(l))
}

// Level returns the current level name.
func Level() string {
	return LevelString(level.Level())
}
