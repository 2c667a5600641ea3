// Package logger is the structured logger handed to services and workers.
// Fields are passed as alternating key/value pairs.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Config struct {
	Level      zerolog.Level
	TimeFormat string
	Output     io.Writer
	// JSON disables the console writer.
	JSON bool
}

type Logger struct {
	zl zerolog.Logger
}

// NewLogger builds a logger from cfg. A nil cfg logs info and above to stdout.
func NewLogger(cfg *Config) *Logger {
	c := Config{Level: zerolog.InfoLevel, TimeFormat: time.RFC3339}
	if cfg != nil {
		c = *cfg
	}
	if c.Output == nil {
		c.Output = os.Stdout
	}

	out := c.Output
	if !c.JSON {
		out = zerolog.ConsoleWriter{Out: c.Output, TimeFormat: c.TimeFormat}
	}
	return &Logger{zl: zerolog.New(out).Level(c.Level).With().Timestamp().Caller().Logger()}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// ParseLevel maps a config string to a level, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// Zerolog exposes the underlying logger for libraries that take one.
func (l *Logger) Zerolog() zerolog.Logger {
	return l.zl
}

// With returns a child logger tagged with the component name.
func (l *Logger) With(component string) *Logger {
	return &Logger{zl: l.zl.With().Str("component", component).Logger()}
}

func (l *Logger) Debug(msg string, kv ...interface{}) {
	l.zl.Debug().Fields(kv).Msg(msg)
}

func (l *Logger) Info(msg string, kv ...interface{}) {
	l.zl.Info().Fields(kv).Msg(msg)
}

func (l *Logger) Warn(msg string, kv ...interface{}) {
	l.zl.Warn().Fields(kv).Msg(msg)
}

func (l *Logger) Error(err error, msg string, kv ...interface{}) {
	l.zl.Error().Err(err).Fields(kv).Msg(msg)
}
