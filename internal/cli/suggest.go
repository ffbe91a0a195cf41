// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// suggest.go - Command suggestion for typo correction.
package cli

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// validCommands lists every command and alias Parse accepts.
var validCommands = []string{
	"tui",
	"start",
	"stop",
	"restart",
	"status",
	"current-config",
	"view-prompt-file",
	"edit-config",
	"config",
	"rename",
	"rename-selection",
	"process-existing-screenshots",
	"daemon",
	"info-logs",
	"error-logs",
	"login",
	"signup",
	"logout",
	"whoami",
	"history",
	"version",
	"help",
	// Aliases
	"signin",
	"signout",
	"register",
	"prompt",
}

// SuggestCommand returns the closest valid command to input, or "" when
// nothing is close enough. The allowed edit distance grows with the length
// of the input.
func SuggestCommand(input string) string {
	input = strings.ToLower(input)
	if len(input) < 2 {
		return ""
	}

	maxDistance := 1
	if len(input) >= 4 {
		maxDistance = 2
	}
	if len(input) > 8 {
		maxDistance = 3
	}

	best := ""
	bestDistance := -1
	for _, cmd := range validCommands {
		d := levenshtein.ComputeDistance(input, cmd)
		if d == 0 {
			return ""
		}
		if d <= maxDistance && (bestDistance == -1 || d < bestDistance) {
			best, bestDistance = cmd, d
		}
	}
	return best
}
