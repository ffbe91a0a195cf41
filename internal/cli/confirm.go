// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// confirm.go - Yes/no confirmation for bulk operations.
//
// Flow:
//  1. --yes skips the prompt
//  2. --json requires --yes
//  3. a non-terminal stdin requires --yes
//  4. otherwise ask and wait for y/n
package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ConfirmationOptions controls Confirm.
type ConfirmationOptions struct {
	// Yes is set by --yes.
	Yes bool
	// JSONMode is set by --json.
	JSONMode bool
	// Interactive is false when stdin cannot prompt.
	Interactive bool
}

// Confirm asks question on out and reads the answer from in. Anything but
// y/yes is a no. The prompt repeats on empty input.
func Confirm(in io.Reader, out io.Writer, question string, opts ConfirmationOptions) (bool, error) {
	if opts.Yes {
		return true, nil
	}
	if opts.JSONMode {
		return false, NewValidationError("--yes", "", "confirmation required: use --yes in JSON mode")
	}
	if !opts.Interactive {
		return false, NewValidationError("--yes", "", "confirmation required but stdin is not a terminal; use --yes")
	}

	reader := bufio.NewReader(in)
	for {
		fmt.Fprintf(out, "%s [y/n]: ", question)
		line, err := reader.ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))
		if answer != "" {
			return answer == "y" || answer == "yes", nil
		}
		if err != nil {
			if err == io.EOF {
				return false, nil
			}
			return false, fmt.Errorf("failed to read confirmation: %w", err)
		}
	}
}
