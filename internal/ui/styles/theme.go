// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styles shared by every screen.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	// ==========================================================================
	// LAYOUT
	// ==========================================================================

	App    lipgloss.Style
	Card   lipgloss.Style
	Title  lipgloss.Style
	Body   lipgloss.Style
	Muted  lipgloss.Style
	Footer lipgloss.Style

	// ==========================================================================
	// NAVBAR
	// ==========================================================================

	Navbar        lipgloss.Style
	NavBrand      lipgloss.Style
	NavItem       lipgloss.Style
	NavItemActive lipgloss.Style
	NavClose      lipgloss.Style

	// ==========================================================================
	// FORMS
	// ==========================================================================

	Label          lipgloss.Style
	Input          lipgloss.Style
	InputFocused   lipgloss.Style
	Button         lipgloss.Style
	ButtonFocused  lipgloss.Style
	ButtonDisabled lipgloss.Style
	Link           lipgloss.Style
	Error          lipgloss.Style
	Hint           lipgloss.Style

	// ==========================================================================
	// PROFILE AND SETTINGS
	// ==========================================================================

	Avatar        lipgloss.Style
	SettingKey    lipgloss.Style
	SettingValue  lipgloss.Style
	SettingUnset  lipgloss.Style
	Spinner       lipgloss.Style
	StatusRunning lipgloss.Style
	StatusStopped lipgloss.Style
}

// NewTheme creates a theme. mode is "auto", "dark" or "light"; auto asks the
// terminal.
func NewTheme(mode string) *Theme {
	profile := termenv.ColorProfile()
	var isDark bool
	switch strings.ToLower(mode) {
	case "dark":
		isDark = true
	case "light":
		isDark = false
	default:
		isDark = termenv.HasDarkBackground()
	}
	lipgloss.SetHasDarkBackground(isDark)

	t := &Theme{IsDark: isDark, ColorProfile: profile}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	t.App = lipgloss.NewStyle().Padding(0, 1)
	t.Card = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(1, 3)
	t.Title = lipgloss.NewStyle().Bold(true).Foreground(Purple)
	t.Body = lipgloss.NewStyle().Foreground(TextPrimary)
	t.Muted = lipgloss.NewStyle().Foreground(TextMuted)
	t.Footer = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)

	// Navbar
	t.Navbar = lipgloss.NewStyle().
		Background(SurfaceDim).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.NavBrand = lipgloss.NewStyle().Bold(true).Foreground(Purple).PaddingRight(2)
	t.NavItem = lipgloss.NewStyle().Foreground(TextSecondary).Padding(0, 1)
	t.NavItemActive = lipgloss.NewStyle().Foreground(Blue).Bold(true).Underline(true).Padding(0, 1)
	t.NavClose = lipgloss.NewStyle().Foreground(Rose).Padding(0, 1)

	// Forms
	t.Label = lipgloss.NewStyle().Foreground(TextSecondary)
	t.Input = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(OverlayDim).
		Padding(0, 1)
	t.InputFocused = t.Input.BorderForeground(Blue)
	t.Button = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(BlueDeep).
		Padding(0, 2)
	t.ButtonFocused = t.Button.Background(Blue).Bold(true)
	t.ButtonDisabled = lipgloss.NewStyle().
		Foreground(TextMuted).
		Background(Overlay).
		Padding(0, 2)
	t.Link = lipgloss.NewStyle().Foreground(Blue).Underline(true)
	t.Error = lipgloss.NewStyle().Foreground(Rose)
	t.Hint = lipgloss.NewStyle().Foreground(Amber).Italic(true)

	// Profile and settings
	t.Avatar = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextInverse).
		Background(Purple).
		Padding(0, 1)
	t.SettingKey = lipgloss.NewStyle().Foreground(TextSecondary).Width(20)
	t.SettingValue = lipgloss.NewStyle().Foreground(TextPrimary)
	t.SettingUnset = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)
	t.Spinner = lipgloss.NewStyle().Foreground(Blue)
	t.StatusRunning = lipgloss.NewStyle().Foreground(Emerald).Bold(true)
	t.StatusStopped = lipgloss.NewStyle().Foreground(TextMuted)
}
