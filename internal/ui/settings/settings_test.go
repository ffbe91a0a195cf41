// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package settings

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anubhavitis/peeksy/internal/host"
	"github.com/anubhavitis/peeksy/internal/ui/styles"
)

type fakeCommands struct {
	cfg   host.PanelConfig
	err   error
	calls int
}

func (f *fakeCommands) GetConfig(context.Context) (host.PanelConfig, error) {
	f.calls++
	return f.cfg, f.err
}

func (f *fakeCommands) CloseWindow() {}

func str(s string) *string { return &s }

// load mounts the panel and feeds it the fetch result.
func load(t *testing.T, fc *fakeCommands) Model {
	t.Helper()
	m := New(fc, styles.NewTheme("dark"))
	require.NotNil(t, m.Init())
	m, _ = m.Update(ConfigMsg{MountID: m.id, Config: fc.cfg, Err: fc.err})
	return m
}

func TestInit_FetchesOnce(t *testing.T) {
	fc := &fakeCommands{}
	m := New(fc, styles.NewTheme("dark"))
	cmd := m.Init()
	require.NotNil(t, cmd)

	// Run the batch and find the config message.
	var got *ConfigMsg
	for _, c := range cmd().(tea.BatchMsg) {
		if c == nil {
			continue
		}
		if msg, ok := c().(ConfigMsg); ok {
			got = &msg
		}
	}
	require.NotNil(t, got)
	assert.Equal(t, 1, fc.calls)
	assert.Equal(t, m.id, got.MountID)
}

func TestView_MasksKeyUntilRevealed(t *testing.T) {
	fc := &fakeCommands{cfg: host.PanelConfig{
		OpenAIAPIKey:         str("sk-abcdefghijklmnop"),
		OpenAIPromptFilePath: str("/Users/me/prompt.txt"),
		OpenAIModel:          str("gpt-4o"),
	}}
	m := load(t, fc)
	require.True(t, m.Loaded())

	view := m.View()
	assert.NotContains(t, view, "sk-abcdefghijklmnop")
	assert.Contains(t, view, "mnop")
	assert.Contains(t, view, "/Users/me/prompt.txt")
	assert.Contains(t, view, "gpt-4o")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'v'}})
	assert.True(t, m.Revealed())
	assert.Contains(t, m.View(), "sk-abcdefghijklmnop")
}

func TestView_UnsetValues(t *testing.T) {
	m := load(t, &fakeCommands{})
	assert.Contains(t, m.View(), "not set")
}

func TestSaveIsInert(t *testing.T) {
	fc := &fakeCommands{cfg: host.PanelConfig{OpenAIModel: str("gpt-4o")}}
	m := load(t, fc)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.Equal(t, SaveHint, m.Hint())
	assert.Zero(t, fc.calls, "save does not reload or write")
}

func TestFetchError(t *testing.T) {
	m := load(t, &fakeCommands{err: errors.New("peeksy: exit status 1")})
	assert.False(t, m.Loaded())
	assert.Contains(t, m.View(), "exit status 1")
}

func TestStaleConfigIgnored(t *testing.T) {
	m := New(&fakeCommands{}, styles.NewTheme("dark"))
	m, _ = m.Update(ConfigMsg{MountID: m.id + 1000, Config: host.PanelConfig{OpenAIModel: str("x")}})
	assert.False(t, m.Loaded())
}
