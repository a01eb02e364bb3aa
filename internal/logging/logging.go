// Package logging provides the structured logger shared by every bly component.
//
// It wraps zerolog and keeps the small surface the rest of the code needs:
// leveled messages with key/value fields and child loggers tagged with a
// component name.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Format selects the output encoding.
type Format string

const (
	// FormatConsole writes human-readable lines.
	FormatConsole Format = "console"
	// FormatJSON writes one JSON object per line.
	FormatJSON Format = "json"
)

// Config configures a Logger.
type Config struct {
	// Level is the minimum level written ("debug", "info", "warn", "error").
	Level string
	// Format is the output encoding. Defaults to FormatConsole.
	Format Format
	// Output defaults to os.Stderr.
	Output io.Writer
}

// Logger wraps zerolog.Logger.
type Logger struct {
	zl zerolog.Logger
}

// New creates a logger from cfg.
func New(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Format != FormatJSON {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	zl := zerolog.New(out).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()
	return &Logger{zl: zl}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// ParseLevel maps a level name to a zerolog level. Unknown names mean info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// WithComponent returns a child logger tagged with a component field.
func (l *Logger) WithComponent(component string) *Logger {
	return l.With("component", component)
}

// With returns a child logger carrying the given key/value pairs.
func (l *Logger) With(kv ...any) *Logger {
	if l == nil {
		return Nop()
	}
	return &Logger{zl: l.zl.With().Fields(kv).Logger()}
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, kv ...any) { l.log(zerolog.DebugLevel, msg, kv) }

// Info logs at info level.
func (l *Logger) Info(msg string, kv ...any) { l.log(zerolog.InfoLevel, msg, kv) }

// Warn logs at warn level.
func (l *Logger) Warn(msg string, kv ...any) { l.log(zerolog.WarnLevel, msg, kv) }

// Error logs at error level.
func (l *Logger) Error(msg string, kv ...any) { l.log(zerolog.ErrorLevel, msg, kv) }

// Zerolog exposes the underlying logger.
func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.zl
}

func (l *Logger) log(level zerolog.Level, msg string, kv []any) {
	if l == nil {
		return
	}
	ev := l.zl.WithLevel(level)
	if ev == nil {
		return
	}
	if len(kv) > 0 {
		ev = ev.Fields(kv)
	}
	ev.Msg(msg)
}
