// Package logging configures the process-wide zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/adamancini/geoasset/internal/types"
)

// Logger is the process-wide logger. It discards everything until Init is called.
var Logger = zerolog.Nop()

var logFile *os.File

// Options configures Init.
type Options struct {
	Level        types.LogLevel
	ConsoleLevel types.LogLevel // defaults to Level
	Console      io.Writer      // nil disables console output
	File         string         // optional path, appended to
	NoColor      bool
}

// Init replaces Logger according to opts.
func Init(opts Options) error {
	var writers []io.Writer

	level := ParseLevel(opts.Level)
	consoleLevel := level
	if opts.ConsoleLevel != "" {
		consoleLevel = ParseLevel(opts.ConsoleLevel)
	}
	minLevel := level

	if opts.Console != nil {
		console := zerolog.ConsoleWriter{
			Out:        opts.Console,
			TimeFormat: "15:04:05",
			NoColor:    opts.NoColor,
		}
		writers = append(writers, &zerolog.FilteredLevelWriter{
			Writer: zerolog.LevelWriterAdapter{Writer: console},
			Level:  consoleLevel,
		})
		if consoleLevel < minLevel {
			minLevel = consoleLevel
		}
	}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		logFile = f
		writers = append(writers, &zerolog.FilteredLevelWriter{
			Writer: zerolog.LevelWriterAdapter{Writer: f},
			Level:  level,
		})
	}

	if len(writers) == 0 {
		Logger = zerolog.Nop()
		return nil
	}

	zerolog.TimeFieldFormat = time.RFC3339
	Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(minLevel).
		With().
		Timestamp().
		Logger()

	return nil
}

// Close closes the log file opened by Init, if any.
func Close() {
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

// ParseLevel maps a configured level onto zerolog. Unknown values mean info.
func ParseLevel(level types.LogLevel) zerolog.Level {
	switch level {
	case types.LogLevelDebug:
		return zerolog.DebugLevel
	case types.LogLevelWarn:
		return zerolog.WarnLevel
	case types.LogLevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// For returns a child logger tagged with module.
func For(module string) zerolog.Logger {
	return Logger.With().Str("module", module).Logger()
}

// Debug starts a debug event for module.
func Debug(module string) *zerolog.Event {
	return Logger.Debug().Str("module", module)
}

// Info starts an info event for module.
func Info(module string) *zerolog.Event {
	return Logger.Info().Str("module", module)
}

// Warn starts a warn event for module.
func Warn(module string) *zerolog.Event {
	return Logger.Warn().Str("module", module)
}

// Error starts an error event for module.
func Error(module string) *zerolog.Event {
	return Logger.Error().Str("module", module)
}
