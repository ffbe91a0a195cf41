// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"strings"
	"testing"
)

// =============================================================================
// ARG PARSER TESTS (args.go)
// =============================================================================

func TestArgParser_BasicParsing(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		boolFlags []string
		wantSub   string
		validate  func(*testing.T, *ArgParser)
	}{
		{
			name:    "simple subcommand",
			args:    []string{"show"},
			wantSub: "show",
		},
		{
			name:    "subcommand with flag",
			args:    []string{"show", "--lines", "50"},
			wantSub: "show",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("lines") != "50" {
					t.Errorf("Flag(lines) = %q, want %q", p.Flag("lines"), "50")
				}
			},
		},
		{
			name:    "flag with equals",
			args:    []string{"set", "--email=me@example.com"},
			wantSub: "set",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("email") != "me@example.com" {
					t.Errorf("Flag(email) = %q", p.Flag("email"))
				}
			},
		},
		{
			name:      "declared boolean flag keeps the next positional",
			args:      []string{"--path", "extra"},
			boolFlags: []string{"path"},
			wantSub:   "extra",
			validate: func(t *testing.T, p *ArgParser) {
				if !p.BoolFlag("path") {
					t.Error("BoolFlag(path) should be true")
				}
			},
		},
		{
			name:    "undeclared flag consumes a value",
			args:    []string{"--path", "extra"},
			wantSub: "",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("path") != "extra" {
					t.Errorf("Flag(path) = %q, want extra", p.Flag("path"))
				}
			},
		},
		{
			name:    "double dash ends flags",
			args:    []string{"--", "-odd-name.png", "b.png"},
			wantSub: "-odd-name.png",
			validate: func(t *testing.T, p *ArgParser) {
				if p.PositionalCount() != 2 {
					t.Errorf("PositionalCount() = %d, want 2", p.PositionalCount())
				}
			},
		},
		{
			name:    "multiple positional args",
			args:    []string{"set", "openai.model", "gpt", "4o"},
			wantSub: "set",
			validate: func(t *testing.T, p *ArgParser) {
				joined := strings.Join(p.PositionalFrom(2), " ")
				if joined != "gpt 4o" {
					t.Errorf("PositionalFrom(2) joined = %q", joined)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewArgParser(tt.args, tt.boolFlags...)
			if got := p.Subcommand(); got != tt.wantSub {
				t.Errorf("Subcommand() = %q, want %q", got, tt.wantSub)
			}
			if tt.validate != nil {
				tt.validate(t, p)
			}
		})
	}
}

func TestArgParser_FlagIntOrDefault(t *testing.T) {
	p := NewArgParser([]string{"--limit", "5", "--n=oops"})

	if got, err := p.FlagIntOrDefault(20, "limit"); err != nil || got != 5 {
		t.Errorf("FlagIntOrDefault(limit) = %d, %v; want 5, nil", got, err)
	}
	if got, err := p.FlagIntOrDefault(20, "missing"); err != nil || got != 20 {
		t.Errorf("FlagIntOrDefault(missing) = %d, %v; want 20, nil", got, err)
	}
	if _, err := p.FlagIntOrDefault(20, "n"); err == nil {
		t.Error("FlagIntOrDefault(n) should reject a non-number")
	}
}

func TestParseBoolString(t *testing.T) {
	for _, in := range []string{"true", "YES", "y", "1", "on"} {
		if v, err := ParseBoolString(in); err != nil || !v {
			t.Errorf("ParseBoolString(%q) = %v, %v", in, v, err)
		}
	}
	for _, in := range []string{"false", "no", "N", "0", "off"} {
		if v, err := ParseBoolString(in); err != nil || v {
			t.Errorf("ParseBoolString(%q) = %v, %v", in, v, err)
		}
	}
	if _, err := ParseBoolString("maybe"); err == nil {
		t.Error("ParseBoolString(maybe) should fail")
	}
}

func TestParseIntWithValidation(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"10", 10, false},
		{"", 0, true},
		{"abc", 0, true},
		{"0", 0, true},
		{"-3", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseIntWithValidation(tt.in, "--limit")
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseIntWithValidation(%q) = %d, %v", tt.in, got, err)
		}
		var ve *ValidationError
		if tt.wantErr && !errors.As(err, &ve) {
			t.Errorf("ParseIntWithValidation(%q) error should be a ValidationError", tt.in)
		}
	}
}

// =============================================================================
// COMMAND PARSING TESTS (cli.go)
// =============================================================================

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name     string
		argv     []string
		wantCmd  Command
		validate func(*testing.T, Args)
	}{
		{name: "no args opens the tui", argv: nil, wantCmd: CmdTUI},
		{name: "start", argv: []string{"start"}, wantCmd: CmdStart},
		{name: "status alias", argv: []string{"s"}, wantCmd: CmdStatus},
		{name: "process existing", argv: []string{"process-existing-screenshots"}, wantCmd: CmdProcessExisting},
		{name: "case insensitive", argv: []string{"Current-Config"}, wantCmd: CmdCurrentConfig},
		{name: "signin alias", argv: []string{"signin"}, wantCmd: CmdLogin},
		{name: "--version", argv: []string{"--version"}, wantCmd: CmdVersion},
		{name: "--help", argv: []string{"--help"}, wantCmd: CmdHelp},
		{
			name:    "global flags anywhere",
			argv:    []string{"rename", "-v", "a.png", "--json", "b.png", "-y"},
			wantCmd: CmdRename,
			validate: func(t *testing.T, a Args) {
				if !a.Verbose || !a.JSON || !a.Yes {
					t.Errorf("global flags not set: %+v", a)
				}
				if strings.Join(a.Raw, ",") != "a.png,b.png" {
					t.Errorf("Raw = %v", a.Raw)
				}
			},
		},
		{
			name:    "config subcommand kept raw",
			argv:    []string{"config", "set", "openai.model", "gpt-4o-mini"},
			wantCmd: CmdConfig,
			validate: func(t *testing.T, a Args) {
				if len(a.Raw) != 3 || a.Raw[0] != "set" {
					t.Errorf("Raw = %v", a.Raw)
				}
			},
		},
		{
			name:    "unknown",
			argv:    []string{"statsu"},
			wantCmd: CmdUnknown,
			validate: func(t *testing.T, a Args) {
				if a.Name != "statsu" {
					t.Errorf("Name = %q", a.Name)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args := ParseArgs(tt.argv)
			if cmd != tt.wantCmd {
				t.Errorf("ParseArgs(%v) = %v, want %v", tt.argv, cmd, tt.wantCmd)
			}
			if tt.validate != nil {
				tt.validate(t, args)
			}
		})
	}
}

func TestCommandString(t *testing.T) {
	if CmdProcessExisting.String() != "process-existing-screenshots" {
		t.Errorf("String() = %q", CmdProcessExisting.String())
	}
	if CmdUnknown.String() != "unknown" {
		t.Errorf("String() = %q", CmdUnknown.String())
	}
}

// =============================================================================
// SUGGESTION TESTS (suggest.go)
// =============================================================================

func TestSuggestCommand(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"statsu", "status"},
		{"strat", "start"},
		{"hepl", "help"},
		{"renmae", "rename"},
		{"edit-confg", "edit-config"},
		{"status", ""},
		{"x", ""},
		{"zzzzzzzz", ""},
	}
	for _, tt := range tests {
		if got := SuggestCommand(tt.in); got != tt.want {
			t.Errorf("SuggestCommand(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUnknownCommandError(t *testing.T) {
	err := UnknownCommandError("statsu")
	if !strings.Contains(err.Error(), `did you mean "status"`) {
		t.Errorf("error = %q, want a suggestion", err)
	}
	if GetExitCode(err) != ExitUsageError {
		t.Errorf("exit code = %d, want %d", GetExitCode(err), ExitUsageError)
	}
}
