// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the colors and lipgloss styles for the peeksy TUI.

All colors are lipgloss AdaptiveColor values, so they follow the terminal's
light or dark background. NewTheme takes the ui.theme setting ("auto",
"dark", "light") and pins the background when it is not "auto".

	theme := styles.NewTheme(cfg.UI.Theme)
	fmt.Println(theme.Title.Render("Peeksy"))
	fmt.Println(styles.RenderError("Invalid login credentials"))
*/
package styles
