// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/anubhavitis/peeksy/internal/ui/styles"
)

// =============================================================================
// SPINNER MODEL
// =============================================================================

// Spinner is a loading indicator with a message and an optional timer.
type Spinner struct {
	spinner   spinner.Model
	message   string
	startTime time.Time
	isActive  bool
	showTimer bool
}

// NewSpinner creates an ASCII line spinner.
func NewSpinner(message string) Spinner {
	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	s.Style = lipgloss.NewStyle().Foreground(styles.Blue)
	if message == "" {
		message = "Loading"
	}
	return Spinner{spinner: s, message: message}
}

// SetMessage changes the text next to the spinner.
func (s *Spinner) SetMessage(msg string) { s.message = msg }

// SetShowTimer toggles the elapsed-time suffix.
func (s *Spinner) SetShowTimer(show bool) { s.showTimer = show }

// Start activates the spinner and returns its first tick.
func (s *Spinner) Start() tea.Cmd {
	if s.isActive {
		return nil
	}
	s.isActive = true
	s.startTime = time.Now()
	return s.spinner.Tick
}

// Stop deactivates the spinner. Pending ticks are dropped by Update.
func (s *Spinner) Stop() { s.isActive = false }

// IsActive reports whether the spinner is running.
func (s *Spinner) IsActive() bool { return s.isActive }

// Update advances the animation.
func (s Spinner) Update(msg tea.Msg) (Spinner, tea.Cmd) {
	if !s.isActive {
		return s, nil
	}
	if _, ok := msg.(spinner.TickMsg); !ok {
		return s, nil
	}
	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(msg)
	return s, cmd
}

// View renders the spinner, or nothing when inactive.
func (s Spinner) View() string {
	if !s.isActive {
		return ""
	}
	out := s.spinner.View() + " " + s.message + "..."
	if s.showTimer {
		out += " " + lipgloss.NewStyle().Foreground(styles.TextMuted).Render(formatElapsed(time.Since(s.startTime)))
	}
	return out
}

func formatElapsed(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}
