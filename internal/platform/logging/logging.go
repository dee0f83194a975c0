// Package logging builds the process logger from configuration.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/clinic/clinic/internal/config"
)

// New returns a zerolog logger writing to stdout and, when LOG_FILE is set,
// to a size-rotated file. Development gets the console format on stdout.
func New(cfg *config.Config) zerolog.Logger {
	return NewWithOutput(cfg, os.Stdout)
}

// NewWithOutput is New with an explicit stdout writer.
func NewWithOutput(cfg *config.Config, stdout io.Writer) zerolog.Logger {
	out := stdout
	if cfg.IsDev() {
		out = zerolog.ConsoleWriter{Out: stdout, TimeFormat: "15:04:05"}
	}

	writers := []io.Writer{out}
	if cfg.LogFile != "" {
		writers = append(writers, FileWriter(cfg))
	}

	var w io.Writer = writers[0]
	if len(writers) > 1 {
		w = zerolog.MultiLevelWriter(writers...)
	}

	return zerolog.New(w).
		Level(ParseLevel(cfg.LogLevel)).
		With().
		Timestamp().
		Str("service", "clinic-server").
		Str("env", cfg.Env).
		Logger()
}

// FileWriter returns the rotating writer for cfg.LogFile. Rotated files are
// compressed.
func FileWriter(cfg *config.Config) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    cfg.LogFileMaxSizeMB,
		MaxBackups: cfg.LogFileMaxBackups,
		MaxAge:     cfg.LogFileMaxAgeDays,
		Compress:   true,
	}
}

// ParseLevel maps LOG_LEVEL to a zerolog level. Unknown values fall back to
// info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
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
