// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/anubhavitis/peeksy/internal/auth"
	"github.com/anubhavitis/peeksy/internal/ui/authpage"
)

// Subscriber is the subscription half of auth.Store.
type Subscriber interface {
	Subscribe(fn auth.Listener) (unsubscribe func())
}

// Bridge turns store notifications into tea messages, in order.
type Bridge struct {
	ch    chan auth.State
	done  chan struct{}
	unsub func()
	once  sync.Once
}

// NewBridge subscribes to s. Close releases the subscription.
func NewBridge(s Subscriber) *Bridge {
	b := &Bridge{
		ch:   make(chan auth.State, 64),
		done: make(chan struct{}),
	}
	b.unsub = s.Subscribe(func(st auth.State) {
		select {
		case b.ch <- st:
		case <-b.done:
		}
	})
	return b
}

// Wait returns a command that yields the next state as authpage.StateMsg.
// Re-issue it after each message.
func (b *Bridge) Wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case st := <-b.ch:
			return authpage.StateMsg{State: st}
		case <-b.done:
			return nil
		}
	}
}

// Close stops delivery.
func (b *Bridge) Close() {
	b.once.Do(func() {
		close(b.done)
		b.unsub()
	})
}
