// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"os"

	"github.com/anubhavitis/peeksy/internal/util"
)

// DefaultPrompt is written to the prompt file on first run.
const DefaultPrompt = `Analyze the attached image and generate a short, descriptive filename that clearly reflects its subject, context, and content.
Rules:
    1. Use lowercase letters only. Separate words with hyphens. No spaces or underscores.
    2. Keep the filename between 3 to 8 words. Be concise but meaningful.
    3. Apply intelligent context recognition:
        - If it is an album cover, include the album title and band or artist name.
        - If it is artwork, mention the style (e.g., oil-painting, digital-art, 3d-render).
        - If it's a poster, include the movie/show/event name.
    4. Avoid generic terms like "image", "picture", "photo", or "screenshot".
    5. Do not include the file extension (e.g., .jpg or .png) in the output.

Return only the final filename string, with no extra explanation or punctuation.
`

// SetupResult reports what Setup created.
type SetupResult struct {
	CreatedDir    bool
	CreatedPrompt bool
	CreatedConfig bool
}

// Setup prepares the config directory on first run: the directory itself,
// the default prompt file, and a config.toml holding the defaults (or the
// values migrated from an existing peeksy_config.json).
func Setup() (SetupResult, error) {
	var res SetupResult

	dir, err := ConfigDir()
	if err != nil {
		return res, err
	}
	if !util.FileExists(dir) {
		res.CreatedDir = true
	}
	if err := EnsureConfigDir(); err != nil {
		return res, fmt.Errorf("failed to create config directory: %w", err)
	}

	promptPath, err := DefaultPromptPath()
	if err != nil {
		return res, err
	}
	if !util.FileExists(promptPath) {
		if err := util.AtomicWriteFile(promptPath, []byte(DefaultPrompt), 0644); err != nil {
			return res, fmt.Errorf("failed to write prompt file: %w", err)
		}
		res.CreatedPrompt = true
	}

	tomlPath, err := ConfigPathTOML()
	if err != nil {
		return res, err
	}
	if _, err := os.Stat(tomlPath); os.IsNotExist(err) {
		cfg, loadErr := Load()
		if cfg == nil {
			return res, loadErr
		}
		if err := SaveTOML(cfg, tomlPath); err != nil {
			return res, err
		}
		res.CreatedConfig = true
	}
	return res, nil
}
