// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anubhavitis/peeksy/internal/auth"
	"github.com/anubhavitis/peeksy/internal/host"
	"github.com/anubhavitis/peeksy/internal/ui/authpage"
	"github.com/anubhavitis/peeksy/internal/ui/settings"
	"github.com/anubhavitis/peeksy/internal/ui/styles"
)

// =============================================================================
// FAKES
// =============================================================================

type fakeStore struct {
	mu        sync.Mutex
	state     auth.State
	listeners map[int]auth.Listener
	next      int
}

func newFakeStore(st auth.State) *fakeStore {
	return &fakeStore{state: st, listeners: map[int]auth.Listener{}}
}

func (f *fakeStore) Subscribe(fn auth.Listener) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	id := f.next
	f.listeners[id] = fn
	return func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}
}

func (f *fakeStore) push(st auth.State) {
	f.mu.Lock()
	f.state = st
	var ls []auth.Listener
	for _, l := range f.listeners {
		ls = append(ls, l)
	}
	f.mu.Unlock()
	for _, l := range ls {
		l(st)
	}
}

func (f *fakeStore) State() auth.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeStore) SignIn(_ context.Context, email, _ string) (auth.Identity, error) {
	return auth.Identity{ID: "u1", Email: email}, nil
}

func (f *fakeStore) SignUp(_ context.Context, email, _ string) (auth.Identity, error) {
	return auth.Identity{ID: "u1", Email: email}, nil
}

func (f *fakeStore) SignOut(context.Context) error { return nil }

type fakeCommands struct {
	mu     sync.Mutex
	gets   int
	closed int
}

func (f *fakeCommands) GetConfig(context.Context) (host.PanelConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	model := "gpt-4o"
	return host.PanelConfig{OpenAIModel: &model}, nil
}

func (f *fakeCommands) CloseWindow() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
}

func newApp(t *testing.T, st auth.State) (Model, *fakeStore, *fakeCommands) {
	t.Helper()
	store := newFakeStore(st)
	cmds := &fakeCommands{}
	m := New(Options{Store: store, Commands: cmds, Theme: styles.NewTheme("dark")})
	t.Cleanup(m.Close)
	return m, store, cmds
}

func update(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// =============================================================================
// BRIDGE
// =============================================================================

func TestBridge_DeliversInOrder(t *testing.T) {
	store := newFakeStore(auth.State{Loading: true})
	b := NewBridge(store)
	defer b.Close()

	id := &auth.Identity{ID: "u1", Email: "a@b.co"}
	store.push(auth.State{})
	store.push(auth.State{Loading: true})
	store.push(auth.State{Identity: id})

	want := []auth.State{{}, {Loading: true}, {Identity: id}}
	for _, w := range want {
		msg := b.Wait()()
		got, ok := msg.(authpage.StateMsg)
		require.True(t, ok)
		assert.Equal(t, w, got.State)
	}
}

func TestBridge_Close(t *testing.T) {
	store := newFakeStore(auth.State{})
	b := NewBridge(store)
	b.Close()
	b.Close()

	assert.Nil(t, b.Wait()())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			store.push(auth.State{})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("push blocked after Close")
	}
}

// =============================================================================
// APP
// =============================================================================

func TestApp_SessionFlowsToScreens(t *testing.T) {
	m, store, _ := newApp(t, auth.State{Loading: true})
	require.NotNil(t, m.Init())

	m, _ = update(m, key("2"))
	assert.Equal(t, ScreenAuth, m.Screen())
	assert.Contains(t, m.View(), "Checking session")

	store.push(auth.State{Identity: &auth.Identity{ID: "u1", Email: "me@x.io"}})
	m, cmd := update(m, m.bridge.Wait()())
	assert.NotNil(t, cmd, "bridge wait is re-issued")
	assert.Contains(t, m.View(), "me@x.io")
}

func TestApp_SwitchingMountsSettings(t *testing.T) {
	m, _, cmds := newApp(t, auth.State{})

	m, cmd := update(m, key("3"))
	assert.Equal(t, ScreenSettings, m.Screen())
	require.NotNil(t, cmd)

	for _, c := range cmd().(tea.BatchMsg) {
		if c == nil {
			continue
		}
		if msg, ok := c().(settings.ConfigMsg); ok {
			m, _ = update(m, msg)
		}
	}
	assert.Equal(t, 1, cmds.gets)
	assert.Contains(t, m.View(), "gpt-4o")

	m, _ = update(m, tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, ScreenAuth, m.Screen())
}

func TestApp_DigitsAreTextOnForm(t *testing.T) {
	m, _, _ := newApp(t, auth.State{})
	m, _ = update(m, tea.KeyMsg{Type: tea.KeyF2})
	require.Equal(t, ScreenAuth, m.Screen())

	m, _ = update(m, key("1"))
	m, _ = update(m, key("q"))
	assert.Equal(t, ScreenAuth, m.Screen(), "typing does not switch or quit")
	assert.Equal(t, "1q", m.account.Form().Email())
}

func TestApp_CloseCallsCloseWindow(t *testing.T) {
	m, _, cmds := newApp(t, auth.State{})

	m, cmd := update(m, key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.Equal(t, 1, cmds.closed)
	assert.Empty(t, m.View())
}
