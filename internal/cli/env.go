// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/anubhavitis/peeksy/internal/auth"
	"github.com/anubhavitis/peeksy/internal/config"
	"github.com/anubhavitis/peeksy/internal/history"
	"github.com/anubhavitis/peeksy/internal/logging"
	"github.com/anubhavitis/peeksy/internal/openai"
	"github.com/anubhavitis/peeksy/internal/renamer"
	"github.com/anubhavitis/peeksy/internal/session"
	"github.com/anubhavitis/peeksy/internal/util"
)

// =============================================================================
// ENVIRONMENT
// =============================================================================

// Env is what every handler needs: configuration, a logger and the
// standard streams.
type Env struct {
	Config *config.Config
	Logger *slog.Logger
	Args   Args

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Run executes external programs (defaults, osascript, launchctl).
	Run util.Runner
	// Executable is the path used when launching the daemon.
	Executable string
	// Interactive is false when stdin cannot prompt.
	Interactive bool

	closer io.Closer
}

// EnvOptions tunes NewEnv.
type EnvOptions struct {
	// Console logs to stderr. The TUI turns it off.
	Console bool
}

// NewEnv runs first-time setup, loads the configuration and opens the log
// files. A config file that fails to parse is reported and defaults are used.
func NewEnv(args Args, opts EnvOptions) (*Env, error) {
	if _, err := config.Setup(); err != nil {
		return nil, fmt.Errorf("initial setup: %w", err)
	}

	cfg, err := config.Load()
	if cfg == nil {
		return nil, err
	}
	loadErr := err
	if args.Verbose {
		cfg.Log.Level = "debug"
	}

	logDir, err := cfg.LogDir()
	if err != nil {
		return nil, err
	}
	lg, err := logging.New(logging.Options{
		Level:   cfg.Log.Level,
		Dir:     logDir,
		Console: opts.Console,
	})
	if err != nil {
		return nil, err
	}
	if loadErr != nil {
		lg.Warn("configuration problem, using defaults where needed", "err", loadErr)
	}

	exe, err := os.Executable()
	if err != nil {
		exe = os.Args[0]
	}
	return &Env{
		Config:      cfg,
		Logger:      lg.Logger,
		Args:        args,
		Stdin:       os.Stdin,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		Run:         util.ExecRunner,
		Executable:  exe,
		Interactive: IsTTY(),
		closer:      lg,
	}, nil
}

// Close releases the log files.
func (e *Env) Close() error {
	if e.closer == nil {
		return nil
	}
	return e.closer.Close()
}

func (e *Env) logger() *slog.Logger {
	if e.Logger == nil {
		return logging.Discard()
	}
	return e.Logger
}

// =============================================================================
// COLLABORATORS
// =============================================================================

// Renamer builds a renamer backed by the OpenAI client and the history
// database. The returned func closes the database.
func (e *Env) Renamer() (*renamer.Renamer, func(), error) {
	cfg := e.Config
	if err := cfg.Ready(); err != nil {
		return nil, nil, err
	}

	client := openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model).
		WithRateLimit(cfg.Daemon.RequestsPerMinute).
		WithLogger(e.logger())
	if cfg.OpenAI.BaseURL != "" {
		client = client.WithBaseURL(cfg.OpenAI.BaseURL)
	}

	opts := []renamer.Option{
		renamer.WithPromptFile(cfg.OpenAI.PromptFilePath),
		renamer.WithModel(cfg.OpenAI.Model),
		renamer.WithMaxAge(time.Duration(cfg.Daemon.MaxAgeSecs) * time.Second),
		renamer.WithLogger(e.logger()),
	}

	cleanup := func() {}
	if path, err := config.HistoryPath(); err == nil {
		db, err := history.Open(path)
		if err != nil {
			// Renaming works without history.
			e.logger().Error("open rename history", "err", err)
		} else {
			opts = append(opts, renamer.WithHistory(db))
			cleanup = func() {
				if err := db.Close(); err != nil {
					e.logger().Error("close rename history", "err", err)
				}
			}
		}
	}
	return renamer.New(client, opts...), cleanup, nil
}

// ScreenshotDir returns the configured screenshot directory, or the one
// macOS reports.
func (e *Env) ScreenshotDir(ctx context.Context) (string, error) {
	if dir := e.Config.Daemon.ScreenshotDir; dir != "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return dir, nil
		}
		return util.ExpandHome(dir, home), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return renamer.ScreenshotDir(ctx, e.Run, home), nil
}

// AuthProvider builds the GoTrue provider over the persisted session file.
func (e *Env) AuthProvider() (*auth.GoTrue, error) {
	cfg := e.Config
	if !cfg.AuthConfigured() {
		return nil, auth.ErrNotConfigured
	}
	sessPath, err := cfg.SessionPath()
	if err != nil {
		return nil, err
	}
	keyPath, err := config.SessionKeyPath()
	if err != nil {
		return nil, err
	}
	return auth.NewGoTrue(auth.GoTrueConfig{
		URL:      cfg.Auth.URL,
		AnonKey:  cfg.Auth.AnonKey,
		Sessions: session.NewFileStore(sessPath, keyPath),
		Logger:   e.logger(),
	})
}

// AuthStore builds a started session store. The returned func closes the
// store and the provider.
func (e *Env) AuthStore(ctx context.Context) (*auth.Store, func(), error) {
	provider, err := e.AuthProvider()
	if err != nil {
		return nil, nil, err
	}
	store := auth.NewStore(provider, auth.WithLogger(e.logger()))
	store.Start(ctx)
	return store, func() {
		store.Close()
		provider.Close()
	}, nil
}

// waitResolved blocks until the store has finished its initial lookup.
func waitResolved(ctx context.Context, store *auth.Store) (auth.State, error) {
	done := make(chan auth.State, 1)
	unsub := store.Subscribe(func(st auth.State) {
		if !st.Loading {
			select {
			case done <- st:
			default:
			}
		}
	})
	defer unsub()

	if st := store.State(); !st.Loading {
		return st, nil
	}
	select {
	case st := <-done:
		return st, nil
	case <-ctx.Done():
		return auth.State{}, errors.New("timed out restoring the session")
	}
}
