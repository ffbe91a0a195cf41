// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the slog logger shared by the CLI, the daemon and
// the TUI. Records fan out to the console and to append-only files under the
// config directory: info.log, error.log and (at debug level) debug.log.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// File names inside the log directory.
const (
	InfoLogFile  = "info.log"
	ErrorLogFile = "error.log"
	DebugLogFile = "debug.log"
)

// Options configures New.
type Options struct {
	// Level is the minimum level for the console and info.log.
	Level string
	// Dir holds the log files. Empty disables file logging.
	Dir string
	// Console enables the stderr handler. The TUI turns it off.
	Console bool
	// ConsoleWriter overrides stderr.
	ConsoleWriter io.Writer
}

// Logger is a slog.Logger that owns its log files.
type Logger struct {
	*slog.Logger
	files []*os.File
}

// ParseLevel maps a config level name to a slog.Level. Unknown names are Info.
func ParseLevel(level string) slog.Level {
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

// New creates the logger. File handles are released by Close.
func New(opts Options) (*Logger, error) {
	lvl := ParseLevel(opts.Level)
	l := &Logger{}
	var handlers []slog.Handler

	if opts.Console {
		w := opts.ConsoleWriter
		if w == nil {
			w = os.Stderr
		}
		handlers = append(handlers, slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
	}

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0700); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		files := []struct {
			name  string
			level slog.Level
			skip  bool
		}{
			{InfoLogFile, min(lvl, slog.LevelInfo), false},
			{ErrorLogFile, slog.LevelError, false},
			{DebugLogFile, slog.LevelDebug, lvl > slog.LevelDebug},
		}
		for _, f := range files {
			if f.skip {
				continue
			}
			fh, err := os.OpenFile(filepath.Join(opts.Dir, f.name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
			if err != nil {
				l.Close()
				return nil, fmt.Errorf("open %s: %w", f.name, err)
			}
			l.files = append(l.files, fh)
			handlers = append(handlers, slog.NewTextHandler(fh, &slog.HandlerOptions{Level: f.level}))
		}
	}

	l.Logger = slog.New(fanout(handlers))
	return l, nil
}

// Close flushes and closes the log files.
func (l *Logger) Close() error {
	var errs []error
	for _, f := range l.files {
		errs = append(errs, f.Close())
	}
	l.files = nil
	return errors.Join(errs...)
}

// Path returns the path of a log file inside dir.
func Path(dir, name string) string {
	return filepath.Join(dir, name)
}

// Discard returns a logger that drops everything. Used by tests and by
// components constructed without a logger.
func Discard() *slog.Logger {
	return slog.New(fanout(nil))
}

// =============================================================================
// FANOUT HANDLER
// =============================================================================

type fanoutHandler struct {
	handlers []slog.Handler
}

func fanout(handlers []slog.Handler) slog.Handler {
	return &fanoutHandler{handlers: handlers}
}

func (h *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, hh := range h.handlers {
		if hh.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, hh := range h.handlers {
		if hh.Enabled(ctx, r.Level) {
			errs = append(errs, hh.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (h *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, hh := range h.handlers {
		next[i] = hh.WithAttrs(attrs)
	}
	return &fanoutHandler{handlers: next}
}

func (h *fanoutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, hh := range h.handlers {
		next[i] = hh.WithGroup(name)
	}
	return &fanoutHandler{handlers: next}
}
