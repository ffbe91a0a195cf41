// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package settings is the read-only configuration panel.
package settings

import (
	"context"
	"strings"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/anubhavitis/peeksy/internal/host"
	"github.com/anubhavitis/peeksy/internal/ui/components"
	"github.com/anubhavitis/peeksy/internal/ui/styles"
	"github.com/anubhavitis/peeksy/internal/util"
)

// SaveHint is shown when the save control is activated. The panel has no
// write path.
const SaveHint = "Saving from this panel is not supported yet. Use `peeksy edit-config`."

// ConfigMsg carries the result of a get_config call.
type ConfigMsg struct {
	MountID uint64
	Config  host.PanelConfig
	Err     error
}

type focusTarget int

const (
	focusAPIKey focusTarget = iota
	focusPrompt
	focusSave
	focusCount
)

// Model is one mount of the panel.
type Model struct {
	id      uint64
	cmds    host.Commands
	theme   *styles.Theme
	spinner components.Spinner

	cfg    host.PanelConfig
	loaded bool
	err    string
	reveal bool
	focus  focusTarget
	hint   string
	width  int
}

var mounts atomic.Uint64

// New mounts the panel. Init fetches the config.
func New(cmds host.Commands, theme *styles.Theme) Model {
	return Model{
		id:      mounts.Add(1),
		cmds:    cmds,
		theme:   theme,
		spinner: components.NewSpinner("Loading configuration"),
		width:   80,
	}
}

// Init starts the single get_config call for this mount.
func (m *Model) Init() tea.Cmd {
	id, cmds := m.id, m.cmds
	fetch := func() tea.Msg {
		cfg, err := cmds.GetConfig(context.Background())
		return ConfigMsg{MountID: id, Config: cfg, Err: err}
	}
	return tea.Batch(m.spinner.Start(), fetch)
}

// Loaded reports whether the config arrived.
func (m Model) Loaded() bool { return m.loaded }

// Err returns the fetch error, "" when none.
func (m Model) Err() string { return m.err }

// Hint returns the save hint, "" until save is pressed.
func (m Model) Hint() string { return m.hint }

// Revealed reports whether the API key is shown in clear.
func (m Model) Revealed() bool { return m.reveal }

// Update handles the fetch result and keys.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ConfigMsg:
		if msg.MountID != m.id {
			return m, nil
		}
		m.spinner.Stop()
		if msg.Err != nil {
			m.err = msg.Err.Error()
			return m, nil
		}
		m.cfg = msg.Config
		m.loaded = true
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "tab", "down":
			m.focus = (m.focus + 1) % focusCount
		case "shift+tab", "up":
			m.focus = (m.focus + focusCount - 1) % focusCount
		case "v":
			m.reveal = !m.reveal
		case "enter":
			switch m.focus {
			case focusSave:
				m.hint = SaveHint
			case focusAPIKey:
				m.reveal = !m.reveal
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

// View renders the panel.
func (m Model) View() string {
	t := m.theme
	var b strings.Builder
	b.WriteString(t.Title.Render("Settings") + "\n\n")

	switch {
	case m.err != "":
		b.WriteString(styles.RenderError("Could not load configuration: "+m.err) + "\n")
		return t.Card.Render(b.String())
	case !m.loaded:
		b.WriteString(m.spinner.View() + "\n")
		return t.Card.Render(b.String())
	}

	key := host.Value(m.cfg.OpenAIAPIKey)
	if !m.reveal {
		key = util.MaskSecret(key)
	}
	b.WriteString(m.row("OpenAI API key", key, m.focus == focusAPIKey, false) + "\n")
	b.WriteString(m.row("Prompt file", host.Value(m.cfg.OpenAIPromptFilePath), m.focus == focusPrompt, false) + "\n")
	b.WriteString(m.row("Model", host.Value(m.cfg.OpenAIModel), false, true) + "\n\n")

	if m.focus == focusSave {
		b.WriteString(t.ButtonFocused.Render("Save"))
	} else {
		b.WriteString(t.Button.Render("Save"))
	}
	if m.hint != "" {
		b.WriteString("\n\n" + t.Hint.Render(m.hint))
	}
	b.WriteString("\n\n" + t.Footer.Render("tab move  v show/hide key"))
	return t.Card.Render(b.String())
}

func (m Model) row(label, value string, focused, disabled bool) string {
	t := m.theme
	marker := "  "
	if focused {
		marker = "> "
	}
	maxValue := max(m.width-32, 12)

	var v string
	switch {
	case value == "":
		v = t.SettingUnset.Render("not set")
	case disabled:
		v = t.Muted.Render(util.TruncateWidth(value, maxValue) + " (fixed)")
	default:
		v = t.SettingValue.Render(util.TruncateWidth(value, maxValue))
	}
	return marker + t.SettingKey.Render(label) + v
}
