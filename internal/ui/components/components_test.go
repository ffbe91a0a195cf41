// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"

	"github.com/anubhavitis/peeksy/internal/ui/styles"
)

// =============================================================================
// SPINNER TESTS
// =============================================================================

func TestSpinner_Lifecycle(t *testing.T) {
	s := NewSpinner("")
	if s.message != "Loading" {
		t.Errorf("default message = %q, want Loading", s.message)
	}
	if s.View() != "" {
		t.Error("inactive spinner should render nothing")
	}

	if cmd := s.Start(); cmd == nil {
		t.Error("Start should return a tick")
	}
	if cmd := s.Start(); cmd != nil {
		t.Error("second Start should be a no-op")
	}
	if !strings.Contains(s.View(), "Loading...") {
		t.Errorf("View() = %q", s.View())
	}

	s.Stop()
	s, cmd := s.Update(spinner.TickMsg{})
	if cmd != nil {
		t.Error("stopped spinner should drop ticks")
	}
	if s.IsActive() {
		t.Error("spinner should be stopped")
	}
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{1500 * time.Millisecond, "1.5s"},
		{0, "0.0s"},
		{75 * time.Second, "1m15s"},
	}
	for _, tt := range tests {
		if got := formatElapsed(tt.d); got != tt.want {
			t.Errorf("formatElapsed(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

// =============================================================================
// NAVBAR TESTS
// =============================================================================

func TestNavbar(t *testing.T) {
	nav := NewNavbar(styles.NewTheme("dark"),
		NavItem{Key: "1", Label: "Home"},
		NavItem{Key: "2", Label: "Account"},
		NavItem{Key: "3", Label: "Settings"},
	)
	nav.Width = 100

	view := nav.View()
	for _, want := range []string{"Peeksy", "Home", "Account", "Settings", "close"} {
		if !strings.Contains(view, want) {
			t.Errorf("navbar view missing %q", want)
		}
	}

	nav.Prev()
	if nav.Active != 2 {
		t.Errorf("Prev from 0 should wrap to 2, got %d", nav.Active)
	}
	nav.Next()
	if nav.Active != 0 {
		t.Errorf("Next from 2 should wrap to 0, got %d", nav.Active)
	}
	nav.SetActive(7)
	if nav.Active != 0 {
		t.Error("out of range SetActive should be ignored")
	}

	nav.Width = 10
	if nav.View() == "" {
		t.Error("narrow navbar should still render")
	}
}
