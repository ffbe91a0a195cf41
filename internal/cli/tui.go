// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/anubhavitis/peeksy/internal/auth"
	"github.com/anubhavitis/peeksy/internal/config"
	"github.com/anubhavitis/peeksy/internal/daemon"
	"github.com/anubhavitis/peeksy/internal/host"
	"github.com/anubhavitis/peeksy/internal/ui/app"
	"github.com/anubhavitis/peeksy/internal/ui/styles"
)

// unconfiguredProvider stands in when no auth URL is set: nobody is signed
// in and every mutation explains what is missing.
type unconfiguredProvider struct{}

func (unconfiguredProvider) CurrentSession(context.Context) (*auth.Identity, error) {
	return nil, nil
}

func (unconfiguredProvider) SignUp(context.Context, string, string) (auth.Identity, error) {
	return auth.Identity{}, &auth.Error{Kind: auth.KindRemote, Message: auth.ErrNotConfigured.Error(), Err: auth.ErrNotConfigured}
}

func (unconfiguredProvider) SignIn(context.Context, string, string) (auth.Identity, error) {
	return auth.Identity{}, &auth.Error{Kind: auth.KindRemote, Message: auth.ErrNotConfigured.Error(), Err: auth.ErrNotConfigured}
}

func (unconfiguredProvider) SignOut(context.Context) error { return nil }

func (unconfiguredProvider) Subscribe(func(auth.Event)) func() { return func() {} }

// sessionStore returns the real store when auth is configured and an
// offline one otherwise.
func (e *Env) sessionStore(ctx context.Context) (*auth.Store, func(), error) {
	store, closeFn, err := e.AuthStore(ctx)
	if errors.Is(err, auth.ErrNotConfigured) {
		e.logger().Warn("auth is not configured; account screen is offline")
		s := auth.NewStore(unconfiguredProvider{}, auth.WithLogger(e.logger()))
		s.Start(ctx)
		return s, s.Close, nil
	}
	return store, closeFn, err
}

// RunTUI runs the full-screen app until the window is closed.
func RunTUI(ctx context.Context, env *Env) error {
	if err := RequiresTTY("open the terminal UI"); err != nil {
		return fmt.Errorf("%w; run 'peeksy help' for the commands", err)
	}
	store, closeStore, err := env.sessionStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	mgr, err := NewServiceManager(env)
	if err != nil {
		return err
	}
	statusFn := func() daemon.Status {
		sctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		st, err := mgr.Status(sctx)
		if err != nil {
			env.logger().Debug("daemon status failed", "err", err)
		}
		return st
	}

	cmds := host.NewLocal(config.Load, func() {
		env.logger().Debug("window closed")
	})

	m := app.New(app.Options{
		Store:    store,
		Commands: cmds,
		StatusFn: statusFn,
		Theme:    styles.NewTheme(env.Config.UI.Theme),
		Logger:   env.logger(),
		Version:  Version,
	})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if fm, ok := final.(app.Model); ok {
		fm.Close()
	} else {
		m.Close()
	}
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
