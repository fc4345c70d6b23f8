// Package logging builds the slog logger a turbine run writes to.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/turbine/internal/config"
)

// FileName is the log file written under the effective log directory.
const FileName = "turbine.log"

// LevelTrace is below slog.LevelDebug for very chatty output.
const LevelTrace = slog.Level(-8)

// LevelOff is above every level a record can carry.
const LevelOff = slog.Level(100)

// ParseLevel maps a level name to a slog level. The second result is false
// when raw is empty or unrecognized, in which case LevelInfo is returned.
func ParseLevel(raw string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return slog.LevelInfo, false
	case "trace", "all":
		return LevelTrace, true
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	case "off", "disabled", "none":
		return LevelOff, true
	default:
		return slog.LevelInfo, false
	}
}

// Setup describes where logs went, for the "will write logs to" note.
type Setup struct {
	Logger *slog.Logger

	// Path is the log file path, or "" when logging to the fallback writer.
	Path string

	closer io.Closer
}

// Close releases the log file, if any.
func (s *Setup) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Configure builds the run logger.
//
// When opts.EffectiveLogDir() is set, the directory is created and text
// records at opts.LogLevel are appended to <dir>/turbine.log. Otherwise
// records go to fallback (nil means io.Discard).
func Configure(opts config.Options, fallback io.Writer) (*Setup, error) {
	level, _ := ParseLevel(opts.LogLevel)
	handlerOpts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevelNames,
	}

	dir := opts.EffectiveLogDir()
	if dir == "" {
		if fallback == nil {
			fallback = io.Discard
		}
		return &Setup{Logger: slog.New(slog.NewTextHandler(fallback, handlerOpts))}, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	path := filepath.Join(dir, FileName)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(file, handlerOpts))
	logger.Debug("logging setup done", "path", path)
	return &Setup{Logger: logger, Path: path, closer: file}, nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func replaceLevelNames(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	if level, ok := a.Value.Any().(slog.Level); ok && level <= LevelTrace {
		return slog.String(slog.LevelKey, "TRACE")
	}
	return a
}
