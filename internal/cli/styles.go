// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Shared styles for command output.
//
// Colors are disabled for piped output and when NO_COLOR is set.
package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/anubhavitis/peeksy/internal/ui/styles"
)

func init() {
	lipgloss.SetColorProfile(GetColorProfile())
}

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Blue).
			MarginBottom(1)

	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.TextPrimary).
			MarginTop(1)

	LabelStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary).
			Width(22)

	ValueStyle = lipgloss.NewStyle().
			Foreground(styles.TextPrimary)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(styles.Rose).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(styles.Amber)

	DimStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)

	SeparatorStyle = lipgloss.NewStyle().
			Foreground(styles.Overlay)
)

// RenderSeparator renders a horizontal rule, 60 cells by default.
func RenderSeparator(width ...int) string {
	w := 60
	if len(width) > 0 && width[0] > 0 {
		w = width[0]
	}
	return SeparatorStyle.Render(strings.Repeat("-", w))
}

// RenderField renders one "label  value" line.
func RenderField(label, value string) string {
	return LabelStyle.Render(label) + ValueStyle.Render(value)
}

// RenderStatus renders a running/stopped marker.
func RenderStatus(running bool) string {
	if running {
		return SuccessStyle.Render("running")
	}
	return WarningStyle.Render("stopped")
}
