// Package logger configures the global zerolog logger.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Config represents logger configuration.
type Config struct {
	Level string // "trace", "debug", "info", "warn", "error"
	File  string // JSON log file; empty logs to the console

	// Quiet discards console output. The terminal view owns the screen, so
	// it runs quiet unless a file is given.
	Quiet bool

	// Console overrides the console writer (stderr by default).
	Console io.Writer
}

// Init initializes the global logger and returns a function that releases
// the log file, if any.
func Init(cfg Config) (func() error, error) {
	level := parseLevel(cfg.Level)
	closer := func() error { return nil }

	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.CallerMarshalFunc = shortCaller

	var logger zerolog.Logger
	switch {
	case cfg.File != "":
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return closer, errors.Wrap(err, "failed to open log file")
		}
		closer = f.Close
		logger = withCaller(zerolog.New(f).With().Timestamp(), level)
	case cfg.Quiet:
		logger = zerolog.Nop()
	default:
		out := cfg.Console
		if out == nil {
			out = os.Stderr
		}
		console := zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "15:04:05.000",
		}
		if level <= zerolog.DebugLevel {
			console.PartsOrder = []string{"time", "level", "message", "caller"}
			console.FormatCaller = func(i interface{}) string {
				return "(" + i.(string) + ")"
			}
		}
		logger = withCaller(zerolog.New(console).With().Timestamp(), level)
	}

	zerolog.DefaultContextLogger = &logger
	zlog.Logger = logger
	return closer, nil
}

// withCaller adds the caller field at debug level and below.
func withCaller(ctx zerolog.Context, level zerolog.Level) zerolog.Logger {
	if level <= zerolog.DebugLevel {
		return ctx.Caller().Logger()
	}
	return ctx.Logger()
}

// shortCaller keeps the last directory and file name.
func shortCaller(pc uintptr, file string, line int) string {
	parts := strings.Split(file, string(filepath.Separator))
	if len(parts) > 1 {
		return filepath.Join(parts[len(parts)-2:]...) + ":" + strconv.Itoa(line)
	}
	return filepath.Base(file) + ":" + strconv.Itoa(line)
}

// parseLevel parses the log level string.
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
