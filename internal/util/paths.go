// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideHome is returned by ResolveUnderHome for absolute paths that do
// not live below the home directory.
var ErrOutsideHome = errors.New("path is not under the home directory")

// ExpandHome replaces a leading "~/" (or a bare "~") with home.
func ExpandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}

// ResolveUnderHome expands "~/" and requires the result to sit inside home.
func ResolveUnderHome(raw, home string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("empty path")
	}
	if raw == "~" || strings.HasPrefix(raw, "~/") {
		return ExpandHome(raw, home), nil
	}

	clean := filepath.Clean(raw)
	rel, err := filepath.Rel(home, clean)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || !filepath.IsAbs(clean) {
		return "", fmt.Errorf("%w: %s", ErrOutsideHome, raw)
	}
	return clean, nil
}

// FileExists reports whether path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
