// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package renamer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/anubhavitis/peeksy/internal/util"
)

// finderSelectionScript prints the POSIX path of every selected Finder item,
// one per line.
const finderSelectionScript = `tell application "Finder"
	set selectedItems to selection
	set output to ""
	repeat with anItem in selectedItems
		set output to output & POSIX path of (anItem as alias) & linefeed
	end repeat
	return output
end tell`

// ErrNoSelection is returned when Finder has nothing selected.
var ErrNoSelection = errors.New("no files selected in Finder")

// ScreenshotDir returns where macOS saves screenshots, falling back to
// ~/Desktop when the location is unset or outside the home directory.
func ScreenshotDir(ctx context.Context, run util.Runner, home string) string {
	desktop := filepath.Join(home, "Desktop")
	if run == nil {
		return desktop
	}
	out, err := run(ctx, "defaults", "read", "com.apple.screencapture", "location")
	if err != nil {
		return desktop
	}
	dir, err := util.ResolveUnderHome(strings.TrimSpace(string(out)), home)
	if err != nil {
		return desktop
	}
	return dir
}

// DefaultScreenshotDir resolves ScreenshotDir for the current user.
func DefaultScreenshotDir(ctx context.Context) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return ScreenshotDir(ctx, util.ExecRunner, home), nil
}

// FinderSelection returns the files currently selected in Finder.
func FinderSelection(ctx context.Context, run util.Runner) ([]string, error) {
	out, err := run(ctx, "osascript", "-e", finderSelectionScript)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasSuffix(line, "/") {
			continue
		}
		paths = append(paths, line)
	}
	if len(paths) == 0 {
		return nil, ErrNoSelection
	}
	return paths, nil
}

// ListScreenshots returns the screenshots directly inside dir.
func ListScreenshots(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.Type().IsRegular() && !strings.HasPrefix(e.Name(), ".") && IsScreenshot(e.Name()) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out, nil
}
