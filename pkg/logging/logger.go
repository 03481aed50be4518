// Package logging builds the slog loggers used across mcpds-setup.
//
// Console output goes through charmbracelet/log, which implements
// slog.Handler. An optional rotating file sink records the same events as
// JSON so a failed run can be inspected after the terminal is gone.
package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	charmlog "github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger construction.
type Options struct {
	// Writer receives console output. Defaults to os.Stderr.
	Writer io.Writer
	// Verbose enables debug level on the console.
	Verbose bool
	// Quiet raises the console level to warnings only.
	Quiet bool
	// File, when set, receives JSON log lines with size-based rotation.
	File string
}

// Logger bundles the slog logger with the sinks that need closing.
type Logger struct {
	*slog.Logger
	file *lumberjack.Logger
}

// Close flushes and closes the file sink, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// New creates a logger according to opts.
func New(opts Options) *Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	console := charmlog.NewWithOptions(w, charmlog.Options{
		ReportTimestamp: opts.Verbose,
		TimeFormat:      time.TimeOnly,
		Level:           consoleLevel(opts),
	})

	if opts.File == "" {
		return &Logger{Logger: slog.New(console)}
	}

	file := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    5, // megabytes
		MaxBackups: 3,
		MaxAge:     30, // days
	}
	fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug})

	return &Logger{
		Logger: slog.New(NewFanoutHandler(console, fileHandler)),
		file:   file,
	}
}

func consoleLevel(opts Options) charmlog.Level {
	switch {
	case opts.Verbose:
		return charmlog.DebugLevel
	case opts.Quiet:
		return charmlog.WarnLevel
	default:
		return charmlog.InfoLevel
	}
}

// NewDiscardLogger returns a logger that drops everything.
func NewDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
