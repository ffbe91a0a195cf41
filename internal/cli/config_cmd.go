// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - current-config, view-prompt-file, edit-config and config.
package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/glamour"
	"github.com/peterh/liner"

	"github.com/anubhavitis/peeksy/internal/config"
	"github.com/anubhavitis/peeksy/internal/host"
	"github.com/anubhavitis/peeksy/internal/util"
)

// =============================================================================
// CURRENT-CONFIG
// =============================================================================

// HandleCurrentConfig prints the settings panel values as JSON. The output
// is what host.CLIBridge parses, so it is only highlighted on a terminal.
func HandleCurrentConfig(env *Env) error {
	data, err := json.MarshalIndent(host.FromConfig(env.Config), "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return writeJSON(env.Stdout, string(data), IsStdoutTTY() && ColorsEnabled())
}

func writeJSON(w io.Writer, src string, highlight bool) error {
	if highlight {
		if err := quick.Highlight(w, src+"\n", "json", "terminal256", "monokai"); err == nil {
			return nil
		}
	}
	_, err := fmt.Fprintln(w, src)
	return err
}

// =============================================================================
// VIEW-PROMPT-FILE
// =============================================================================

// HandleViewPromptFile renders the prompt file as markdown on a terminal and
// prints it verbatim otherwise.
func HandleViewPromptFile(env *Env) error {
	path := env.Config.OpenAI.PromptFilePath
	if path == "" {
		return fmt.Errorf("%w: prompt file is not set; run 'peeksy edit-config'", config.ErrNotReady)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read prompt file: %w", err)
	}

	fmt.Fprintln(env.Stdout, DimStyle.Render(path))
	if !IsStdoutTTY() {
		fmt.Fprintf(env.Stdout, "----------\n%s\n----------\n", strings.TrimRight(string(data), "\n"))
		return nil
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(GetTerminalWidth()-4),
	)
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}
	out, err := r.Render(string(data))
	if err != nil {
		return fmt.Errorf("render prompt: %w", err)
	}
	fmt.Fprint(env.Stdout, out)
	return nil
}

// =============================================================================
// EDIT-CONFIG
// =============================================================================

// PromptFunc asks for one value. current is shown as the default; an empty
// answer keeps it.
type PromptFunc func(label, current string, secret bool) (string, error)

// EditConfig asks for the three OpenAI settings and applies the non-empty
// answers. It reports whether anything changed.
func EditConfig(cfg *config.Config, ask PromptFunc) (bool, error) {
	fields := []struct {
		label  string
		target *string
		secret bool
	}{
		{"OpenAI API key", &cfg.OpenAI.APIKey, true},
		{"Prompt file path", &cfg.OpenAI.PromptFilePath, false},
		{"Model", &cfg.OpenAI.Model, false},
	}

	changed := false
	for _, f := range fields {
		answer, err := ask(f.label, *f.target, f.secret)
		if err != nil {
			return changed, err
		}
		answer = strings.TrimSpace(answer)
		if answer == "" || answer == *f.target {
			continue
		}
		*f.target = answer
		changed = true
	}
	return changed, nil
}

// HandleEditConfig edits the config file interactively and saves it.
func HandleEditConfig(env *Env) error {
	cfg, err := config.LoadForEdit()
	if err != nil {
		return err
	}

	var ask PromptFunc
	if env.Interactive {
		line := liner.NewLiner()
		defer line.Close()
		line.SetCtrlCAborts(true)
		ask = linerPrompt(line)
	} else {
		ask = readerPrompt(env.Stdin, env.Stdout)
	}

	changed, err := EditConfig(cfg, ask)
	if errors.Is(err, liner.ErrPromptAborted) {
		return ErrCancelled
	}
	if err != nil {
		return err
	}
	if !changed {
		fmt.Fprintln(env.Stdout, "No changes.")
		return nil
	}

	if home, err := os.UserHomeDir(); err == nil {
		cfg.OpenAI.PromptFilePath = util.ExpandHome(cfg.OpenAI.PromptFilePath, home)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return err
	}
	env.logger().Info("config edited")
	fmt.Fprintln(env.Stdout, SuccessStyle.Render("Config edited successfully"))
	return nil
}

func linerPrompt(line *liner.State) PromptFunc {
	return func(label, current string, secret bool) (string, error) {
		if secret {
			hint := "not set"
			if current != "" {
				hint = util.MaskSecret(current) + ", enter to keep"
			}
			return line.PasswordPrompt(fmt.Sprintf("%s (%s): ", label, hint))
		}
		return line.PromptWithSuggestion(label+": ", current, -1)
	}
}

func readerPrompt(in io.Reader, out io.Writer) PromptFunc {
	reader := bufio.NewReader(in)
	return func(label, current string, secret bool) (string, error) {
		shown := current
		if secret {
			shown = util.MaskSecret(current)
		}
		if shown == "" {
			fmt.Fprintf(out, "%s: ", label)
		} else {
			fmt.Fprintf(out, "%s [%s]: ", label, shown)
		}
		answer, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return answer, nil
	}
}

// =============================================================================
// CONFIG SHOW / SET / PATH
// =============================================================================

// HandleConfig dispatches the config subcommands.
func HandleConfig(env *Env) error {
	p := NewArgParser(env.Args.Raw)
	switch sub := p.Subcommand(); sub {
	case "", "show":
		return showConfig(env)
	case "set":
		key, value := p.Positional(1), strings.Join(p.PositionalFrom(2), " ")
		if key == "" || p.PositionalCount() < 3 {
			return ErrMissingArgument("key", "peeksy config set <key> <value>")
		}
		return setConfig(env, key, value)
	case "get":
		key := p.Positional(1)
		if key == "" {
			return ErrMissingArgument("key", "peeksy config get <key>")
		}
		v, err := env.Config.Get(key)
		if err != nil {
			return NewValidationError("key", key, err.Error())
		}
		fmt.Fprintln(env.Stdout, displayValue(key, v))
		return nil
	case "path":
		path, err := config.ConfigPathTOML()
		if err != nil {
			return err
		}
		fmt.Fprintln(env.Stdout, path)
		return nil
	default:
		return NewValidationError("subcommand", sub, "expected show, get, set or path")
	}
}

func showConfig(env *Env) error {
	keys := config.GetAllKeys()
	values := make(map[string]string, len(keys))
	for _, key := range keys {
		v, err := env.Config.Get(key)
		if err != nil {
			return err
		}
		values[key] = displayValue(key, v)
	}

	if env.Args.JSON {
		return NewJSONResponse("config", values).Write(env.Stdout)
	}

	sorted := append([]string(nil), keys...)
	sort.Slice(sorted, func(i, j int) bool {
		ti, tj := !strings.Contains(sorted[i], "."), !strings.Contains(sorted[j], ".")
		if ti != tj {
			return ti
		}
		return sorted[i] < sorted[j]
	})
	fmt.Fprintln(env.Stdout, TitleStyle.Render("peeksy configuration"))
	section := ""
	for _, key := range sorted {
		sec, name, _ := strings.Cut(key, ".")
		if name == "" {
			name, sec = sec, ""
		}
		if sec != section {
			section = sec
			fmt.Fprintln(env.Stdout, SectionStyle.Render("["+sec+"]"))
		}
		val := values[key]
		if val == "" {
			val = DimStyle.Render("(not set)")
		}
		fmt.Fprintln(env.Stdout, RenderField("  "+name, val))
	}
	if err := env.Config.Ready(); err != nil {
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, WarningStyle.Render(err.Error()))
	}
	return nil
}

func setConfig(env *Env, key, value string) error {
	cfg, err := config.LoadForEdit()
	if err != nil {
		return err
	}
	if err := cfg.Set(key, value); err != nil {
		return NewValidationError("key", key, err.Error())
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return err
	}
	env.logger().Info("config updated", "key", key)
	fmt.Fprintf(env.Stdout, "%s = %s\n", key, displayValue(key, value))
	return nil
}

func displayValue(key string, v interface{}) string {
	s := fmt.Sprint(v)
	if config.IsSecretKey(key) {
		return util.MaskSecret(s)
	}
	return s
}
