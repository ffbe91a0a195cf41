// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package daemon watches the screenshot directory and renames new captures.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/anubhavitis/peeksy/internal/config"
	"github.com/anubhavitis/peeksy/internal/logging"
	"github.com/anubhavitis/peeksy/internal/renamer"
)

// =============================================================================
// DAEMON
// =============================================================================

// Processor renames a freshly created screenshot.
type Processor interface {
	ProcessNew(ctx context.Context, path string) (renamer.Result, error)
}

// Daemon is the long-running screenshot watcher.
type Daemon struct {
	cfg     *config.Config
	dir     string
	proc    Processor
	pidPath string
	logger  *slog.Logger
	signals bool
	ready   chan struct{}

	mu       sync.Mutex
	inflight map[string]bool
}

// Option configures a Daemon.
type Option func(*Daemon)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Daemon) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithPIDFile overrides the pid file location.
func WithPIDFile(path string) Option { return func(d *Daemon) { d.pidPath = path } }

// WithoutSignals stops Run from installing SIGINT/SIGTERM handlers.
func WithoutSignals() Option { return func(d *Daemon) { d.signals = false } }

// New creates a daemon watching dir. An empty dir means the macOS screenshot
// location.
func New(cfg *config.Config, dir string, proc Processor, opts ...Option) *Daemon {
	d := &Daemon{
		cfg:      cfg,
		dir:      dir,
		proc:     proc,
		logger:   logging.Discard(),
		signals:  true,
		ready:    make(chan struct{}),
		inflight: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Ready is closed once the watch is established.
func (d *Daemon) Ready() <-chan struct{} { return d.ready }

// Run watches until ctx is cancelled or the process is signalled.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.cfg.Ready(); err != nil {
		return err
	}
	if d.signals {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
	}

	if d.dir == "" {
		dir, err := renamer.DefaultScreenshotDir(ctx)
		if err != nil {
			return err
		}
		d.dir = dir
	}
	if info, err := os.Stat(d.dir); err != nil || !info.IsDir() {
		return fmt.Errorf("screenshot directory %s is not accessible", d.dir)
	}

	if d.pidPath == "" {
		p, err := config.PIDPath()
		if err != nil {
			return err
		}
		d.pidPath = p
	}
	if err := WritePID(d.pidPath); err != nil {
		return err
	}
	defer RemovePID(d.pidPath)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(d.dir); err != nil {
		return fmt.Errorf("watch %s: %w", d.dir, err)
	}

	d.logger.Info("watching for screenshots", "dir", d.dir, "pid", os.Getpid())
	close(d.ready)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(d.cfg.Daemon.Concurrency, 1))

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("daemon stopping")
			return g.Wait()

		case ev, ok := <-watcher.Events:
			if !ok {
				return g.Wait()
			}
			if !ev.Op.Has(fsnotify.Create) || !renamer.IsScreenshot(ev.Name) {
				continue
			}
			key := renamer.FixHiddenName(ev.Name)
			if !d.claim(key) {
				continue
			}
			path := ev.Name
			g.Go(func() error {
				defer d.release(key)
				d.handle(gctx, path)
				return nil
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return g.Wait()
			}
			d.logger.Error("watcher error", "err", err)
		}
	}
}

func (d *Daemon) handle(ctx context.Context, path string) {
	res, err := d.proc.ProcessNew(ctx, path)
	switch {
	case err == nil:
		d.logger.Info("screenshot renamed", "from", filepath.Base(res.From), "to", filepath.Base(res.To))
	case errors.Is(err, renamer.ErrTooOld), errors.Is(err, renamer.ErrNotScreenshot),
		errors.Is(err, os.ErrNotExist), errors.Is(err, context.Canceled):
		d.logger.Debug("skipped", "path", path, "reason", err)
	default:
		d.logger.Error("failed to rename screenshot", "path", path, "err", err)
	}
}

// claim marks key as being processed. macOS emits both the hidden and the
// final name for one capture.
func (d *Daemon) claim(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.inflight[key] {
		return false
	}
	d.inflight[key] = true
	return true
}

func (d *Daemon) release(key string) {
	d.mu.Lock()
	delete(d.inflight, key)
	d.mu.Unlock()
}
