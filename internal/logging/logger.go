package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"quire/internal/config"
)

// LogFileName is the file written under paths.log_dir.
const LogFileName = "quire.log"

// Options describes logger construction parameters.
type Options struct {
	Level  string
	Format string
	// Writer receives console output; defaults to stderr.
	Writer io.Writer
	// FilePath, when set, receives a JSON copy of every record at FileLevel.
	FilePath    string
	FileLevel   string
	Development bool
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	level := parseLevel(opts.Level)
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)

	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}

	addSource := opts.Development || level <= slog.LevelDebug

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "console"
	}

	var console slog.Handler
	switch format {
	case "json":
		console = newJSONHandler(writer, levelVar, addSource)
	case "console":
		console = newPrettyHandler(writer, levelVar, addSource)
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	if strings.TrimSpace(opts.FilePath) == "" {
		return slog.New(console), nil
	}

	file, err := openLogFile(opts.FilePath)
	if err != nil {
		return nil, err
	}
	fileLevel := new(slog.LevelVar)
	fileLevel.Set(parseLevel(defaultString(opts.FileLevel, "debug")))
	return slog.New(newFanoutHandler(console, newJSONHandler(file, fileLevel, true))), nil
}

// NewFromConfig creates a logger using application config defaults. A
// non-empty levelOverride replaces logging.level.
func NewFromConfig(cfg *config.Config, levelOverride string) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Level: defaultString(levelOverride, "info"), Format: "console"})
	}

	opts := Options{
		Level:  defaultString(levelOverride, cfg.Logging.Level),
		Format: cfg.Logging.Format,
	}
	if cfg.Paths.LogDir != "" {
		opts.FilePath = filepath.Join(cfg.Paths.LogDir, LogFileName)
	}
	return New(opts)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func defaultString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func openLogFile(path string) (io.Writer, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return file, nil
}
