// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package host provides the native commands the UI calls: reading the
// renamer configuration and closing the window.
package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/anubhavitis/peeksy/internal/config"
	"github.com/anubhavitis/peeksy/internal/util"
)

// PanelConfig is what the settings panel shows. Nil means "not set".
type PanelConfig struct {
	OpenAIAPIKey         *string `json:"openai_api_key"`
	OpenAIPromptFilePath *string `json:"openai_prompt_file_path"`
	OpenAIModel          *string `json:"openai_model"`
}

// FromConfig projects the full config onto the panel fields.
func FromConfig(cfg *config.Config) PanelConfig {
	return PanelConfig{
		OpenAIAPIKey:         nonEmpty(cfg.OpenAI.APIKey),
		OpenAIPromptFilePath: nonEmpty(cfg.OpenAI.PromptFilePath),
		OpenAIModel:          nonEmpty(cfg.OpenAI.Model),
	}
}

// Value dereferences p, returning "" for nil.
func Value(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Commands is the host surface used by the UI.
type Commands interface {
	GetConfig(ctx context.Context) (PanelConfig, error)
	// CloseWindow asks the host to close the window. It does not wait.
	CloseWindow()
}

// =============================================================================
// IN-PROCESS HOST
// =============================================================================

// Local serves commands from inside the running process.
type Local struct {
	load  func() (*config.Config, error)
	close func()
	once  sync.Once
}

// NewLocal returns a host that reads config with load and closes the window
// by calling closeFn (at most once).
func NewLocal(load func() (*config.Config, error), closeFn func()) *Local {
	if load == nil {
		load = config.Load
	}
	return &Local{load: load, close: closeFn}
}

// GetConfig reads the current configuration.
func (l *Local) GetConfig(ctx context.Context) (PanelConfig, error) {
	if err := ctx.Err(); err != nil {
		return PanelConfig{}, err
	}
	cfg, err := l.load()
	if cfg == nil {
		if err == nil {
			err = errors.New("no configuration available")
		}
		return PanelConfig{}, err
	}
	// A partially broken file still yields defaults; show them.
	return FromConfig(cfg), nil
}

// CloseWindow invokes the close callback once.
func (l *Local) CloseWindow() {
	l.once.Do(func() {
		if l.close != nil {
			l.close()
		}
	})
}

// =============================================================================
// CLI BRIDGE
// =============================================================================

// CLIBridge reads config by running `peeksy current-config`, the way a
// separate GUI process would.
type CLIBridge struct {
	Binary  string
	Run     util.Runner
	OnClose func()
}

// GetConfig runs the CLI and decodes the JSON object it prints.
func (b *CLIBridge) GetConfig(ctx context.Context) (PanelConfig, error) {
	run := b.Run
	if run == nil {
		run = util.ExecRunner
	}
	bin := b.Binary
	if bin == "" {
		bin = "peeksy"
	}

	out, err := run(ctx, bin, "current-config")
	if err != nil {
		return PanelConfig{}, err
	}
	obj, err := ExtractJSONObject(string(out))
	if err != nil {
		return PanelConfig{}, err
	}
	var pc PanelConfig
	if err := json.Unmarshal([]byte(obj), &pc); err != nil {
		return PanelConfig{}, fmt.Errorf("decode current-config output: %w", err)
	}
	return pc, nil
}

// CloseWindow calls OnClose if set.
func (b *CLIBridge) CloseWindow() {
	if b.OnClose != nil {
		b.OnClose()
	}
}

// ErrNoJSON is returned when the CLI output holds no JSON object.
var ErrNoJSON = errors.New("no JSON object in output")

// ExtractJSONObject returns the lines from the first one starting with "{"
// through the last one starting with "}". Log lines around the object are
// dropped.
func ExtractJSONObject(output string) (string, error) {
	lines := strings.Split(strings.ReplaceAll(output, "\r\n", "\n"), "\n")
	start, end := -1, -1
	for i, line := range lines {
		if start < 0 && strings.HasPrefix(line, "{") {
			start = i
		}
		if strings.HasPrefix(line, "}") || (strings.HasPrefix(line, "{") && strings.HasSuffix(strings.TrimSpace(line), "}")) {
			end = i
		}
	}
	if start < 0 || end < start {
		return "", ErrNoJSON
	}
	return strings.Join(lines[start:end+1], "\n"), nil
}
