// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app is the top-level TUI model: navbar, screen switching and the
// session bridge.
package app

import (
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/anubhavitis/peeksy/internal/auth"
	"github.com/anubhavitis/peeksy/internal/daemon"
	"github.com/anubhavitis/peeksy/internal/host"
	"github.com/anubhavitis/peeksy/internal/logging"
	"github.com/anubhavitis/peeksy/internal/ui/authpage"
	"github.com/anubhavitis/peeksy/internal/ui/components"
	"github.com/anubhavitis/peeksy/internal/ui/home"
	"github.com/anubhavitis/peeksy/internal/ui/settings"
	"github.com/anubhavitis/peeksy/internal/ui/styles"
)

// =============================================================================
// TYPES
// =============================================================================

// Screen is a top-level page.
type Screen int

const (
	ScreenHome Screen = iota
	ScreenAuth
	ScreenSettings
)

// SessionStore is what the app needs from auth.Store.
type SessionStore interface {
	Subscriber
	authpage.Session
	State() auth.State
}

// Options wires the app's collaborators.
type Options struct {
	Store    SessionStore
	Commands host.Commands
	StatusFn func() daemon.Status
	Theme    *styles.Theme
	Logger   *slog.Logger
	Version  string
}

// Model is the root bubbletea model.
type Model struct {
	opts   Options
	theme  *styles.Theme
	bridge *Bridge

	nav      *components.Navbar
	screen   Screen
	home     home.Model
	account  authpage.Model
	settings settings.Model

	width, height int
	quitting      bool
}

// New builds the app. Call Close when the program exits.
func New(opts Options) Model {
	if opts.Theme == nil {
		opts.Theme = styles.NewTheme("auto")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	t := opts.Theme
	return Model{
		opts:   opts,
		theme:  t,
		bridge: NewBridge(opts.Store),
		nav: components.NewNavbar(t,
			components.NavItem{Key: "1", Label: "Home"},
			components.NavItem{Key: "2", Label: "Account"},
			components.NavItem{Key: "3", Label: "Settings"},
		),
		home:    home.New(t, opts.StatusFn, opts.Version),
		account: authpage.New(opts.Store, t, opts.Store.State(), opts.Logger),
	}
}

// Screen returns the active screen.
func (m Model) Screen() Screen { return m.screen }

// Close releases the session subscription.
func (m Model) Close() { m.bridge.Close() }

// Init starts the bridge and the screens.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.bridge.Wait(), m.home.Init(), m.account.Init())
}

// =============================================================================
// UPDATE
// =============================================================================

// Update routes messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.nav.Width = msg.Width
		var cmd tea.Cmd
		m.settings, cmd = m.settings.Update(msg)
		return m, cmd

	case authpage.StateMsg:
		var c1, c2 tea.Cmd
		m.home, c1 = m.home.Update(msg)
		m.account, c2 = m.account.Update(msg)
		return m, tea.Batch(c1, c2, m.bridge.Wait())

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	// Results and ticks go to every screen; each drops what is not its own.
	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.home, cmd = m.home.Update(msg)
	cmds = append(cmds, cmd)
	m.account, cmd = m.account.Update(msg)
	cmds = append(cmds, cmd)
	if m.screen == ScreenSettings {
		m.settings, cmd = m.settings.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "ctrl+c", "ctrl+q":
		return m.close()
	case "f1":
		return m.switchTo(ScreenHome)
	case "f2":
		return m.switchTo(ScreenAuth)
	case "f3":
		return m.switchTo(ScreenSettings)
	}

	// Plain keys are text while the sign-in form is on screen.
	if !m.typing() {
		switch key {
		case "q", "esc":
			return m.close()
		case "1":
			return m.switchTo(ScreenHome)
		case "2":
			return m.switchTo(ScreenAuth)
		case "3":
			return m.switchTo(ScreenSettings)
		case "left":
			return m.switchTo(Screen((int(m.screen) + 2) % 3))
		case "right":
			return m.switchTo(Screen((int(m.screen) + 1) % 3))
		}
	}

	var cmd tea.Cmd
	switch m.screen {
	case ScreenHome:
		m.home, cmd = m.home.Update(msg)
	case ScreenAuth:
		m.account, cmd = m.account.Update(msg)
	case ScreenSettings:
		m.settings, cmd = m.settings.Update(msg)
	}
	return m, cmd
}

func (m Model) typing() bool {
	return m.screen == ScreenAuth && m.account.Current() == authpage.ViewAnonymousForm
}

// switchTo changes screen. Entering Settings mounts a fresh panel, which
// fetches the config once.
func (m Model) switchTo(s Screen) (tea.Model, tea.Cmd) {
	if s == m.screen {
		return m, nil
	}
	m.screen = s
	m.nav.SetActive(int(s))
	if s == ScreenSettings {
		m.settings = settings.New(m.opts.Commands, m.theme)
		m.settings, _ = m.settings.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
		return m, m.settings.Init()
	}
	return m, nil
}

// close runs the close_window command and quits.
func (m Model) close() (tea.Model, tea.Cmd) {
	m.quitting = true
	if m.opts.Commands != nil {
		m.opts.Commands.CloseWindow()
	}
	return m, tea.Quit
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the navbar and the active screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var body string
	switch m.screen {
	case ScreenHome:
		body = m.home.View()
	case ScreenAuth:
		body = m.account.View()
	case ScreenSettings:
		body = m.settings.View()
	}
	help := m.theme.Footer.Render("1-3/F1-F3 switch screen  ctrl+c close")
	return lipgloss.JoinVertical(lipgloss.Left, m.nav.View(), m.theme.App.Render(body), help)
}
