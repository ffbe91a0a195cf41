// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/anubhavitis/peeksy/internal/ui/styles"
	"github.com/anubhavitis/peeksy/internal/util"
)

// =============================================================================
// NAVBAR
// =============================================================================

// NavItem is one entry in the navbar.
type NavItem struct {
	Key   string // shortcut shown before the label
	Label string
}

// Navbar is the top bar with the brand, screen links and a close control.
type Navbar struct {
	Brand  string
	Items  []NavItem
	Active int
	Width  int
	theme  *styles.Theme
}

// NewNavbar creates a navbar with the given items.
func NewNavbar(theme *styles.Theme, items ...NavItem) *Navbar {
	return &Navbar{Brand: "Peeksy", Items: items, Width: 80, theme: theme}
}

// SetActive selects item i when it is in range.
func (n *Navbar) SetActive(i int) {
	if i >= 0 && i < len(n.Items) {
		n.Active = i
	}
}

// Next moves the selection right, wrapping around.
func (n *Navbar) Next() {
	if len(n.Items) > 0 {
		n.Active = (n.Active + 1) % len(n.Items)
	}
}

// Prev moves the selection left, wrapping around.
func (n *Navbar) Prev() {
	if len(n.Items) > 0 {
		n.Active = (n.Active - 1 + len(n.Items)) % len(n.Items)
	}
}

// View renders the bar at n.Width.
func (n *Navbar) View() string {
	t := n.theme
	parts := []string{t.NavBrand.Render(n.Brand)}
	for i, item := range n.Items {
		label := item.Label
		if item.Key != "" {
			label = item.Key + " " + label
		}
		if i == n.Active {
			parts = append(parts, t.NavItemActive.Render(label))
		} else {
			parts = append(parts, t.NavItem.Render(label))
		}
	}
	left := strings.Join(parts, "")
	right := t.NavClose.Render("q close")

	gap := n.Width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		left = util.TruncateWidth(left, max(n.Width-lipgloss.Width(right)-3, 0))
		gap = 1
	}
	return t.Navbar.Width(max(n.Width, 0)).Render(left + strings.Repeat(" ", gap) + right)
}
