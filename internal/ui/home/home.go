// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package home is the landing screen.
package home

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/anubhavitis/peeksy/internal/daemon"
	"github.com/anubhavitis/peeksy/internal/ui/authpage"
	"github.com/anubhavitis/peeksy/internal/ui/styles"
)

// StatusMsg carries a daemon status check.
type StatusMsg struct {
	Status daemon.Status
}

// Model is the home screen.
type Model struct {
	theme    *styles.Theme
	statusFn func() daemon.Status
	version  string

	email   string
	status  daemon.Status
	checked bool
}

// New creates the home screen. statusFn may be nil.
func New(theme *styles.Theme, statusFn func() daemon.Status, version string) Model {
	return Model{theme: theme, statusFn: statusFn, version: version}
}

// Init checks the daemon status.
func (m Model) Init() tea.Cmd { return m.refresh() }

func (m Model) refresh() tea.Cmd {
	if m.statusFn == nil {
		return nil
	}
	fn := m.statusFn
	return func() tea.Msg { return StatusMsg{Status: fn()} }
}

// Update handles status and session changes.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case StatusMsg:
		m.status = msg.Status
		m.checked = true
	case authpage.StateMsg:
		m.email = ""
		if msg.State.Identity != nil {
			m.email = msg.State.Identity.Email
		}
	case tea.KeyMsg:
		if msg.String() == "r" {
			return m, m.refresh()
		}
	}
	return m, nil
}

// View renders the screen.
func (m Model) View() string {
	t := m.theme
	var b strings.Builder
	b.WriteString(t.Title.Render("Peeksy") + "\n\n")
	if m.email != "" {
		b.WriteString(t.Body.Render("Welcome back, "+m.email+".") + "\n")
	} else {
		b.WriteString(t.Body.Render("Welcome to Peeksy. New screenshots get descriptive names automatically.") + "\n")
	}
	b.WriteString("\n")

	switch {
	case m.statusFn == nil:
	case !m.checked:
		b.WriteString(t.Muted.Render("Daemon: checking...") + "\n")
	case m.status.Running:
		b.WriteString("Daemon: " + t.StatusRunning.Render(m.status.String()) + "\n")
	default:
		b.WriteString("Daemon: " + t.StatusStopped.Render("stopped") + t.Muted.Render("  (run `peeksy start`)") + "\n")
	}

	footer := "r refresh status"
	if m.version != "" {
		footer = "v" + m.version + "  " + footer
	}
	b.WriteString("\n" + t.Footer.Render(footer))
	return t.Card.Render(b.String())
}
