package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Level represents the severity of a log message
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

// Config holds logger configuration
type Config struct {
	Level      Level
	OutputFile string // path to log file (empty = stderr only)
	JSONFormat bool   // JSON handler (default text)
	AddSource  bool   // add source file and line number
}

// Logger wraps slog.Logger with an owned output file.
type Logger struct {
	slog *slog.Logger
	file *os.File
}

// New creates a configured logger. Worker processes log JSON to a file;
// the CLI defaults to text on stderr.
func New(config Config) (*Logger, error) {
	logger := &Logger{}

	var w io.Writer = os.Stderr
	if config.OutputFile != "" {
		dir := filepath.Dir(config.OutputFile)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create log directory %s: %w", dir, err)
		}
		file, err := os.OpenFile(config.OutputFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", config.OutputFile, err)
		}
		logger.file = file
		w = io.MultiWriter(os.Stderr, file)
	}

	opts := &slog.HandlerOptions{
		Level:     toSlogLevel(config.Level),
		AddSource: config.AddSource,
	}

	var handler slog.Handler
	if config.JSONFormat {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger.slog = slog.New(handler)
	return logger, nil
}

// ParseLevel maps a config string to a Level, defaulting to INFO.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

func toSlogLevel(level Level) slog.Level {
	switch level {
	case DEBUG:
		return slog.LevelDebug
	case WARN:
		return slog.LevelWarn
	case ERROR:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Slog exposes the underlying slog.Logger for packages that take one.
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// Component returns a child logger tagged with a component name.
func (l *Logger) Component(name string) *slog.Logger {
	return l.slog.With("component", name)
}

// Close closes the log file if one is open
func (l *Logger) Close() error {
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}
