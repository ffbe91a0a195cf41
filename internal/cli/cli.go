// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command dispatch and usage text for peeksy.
package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Version information (set by main at startup)
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// =============================================================================
// COMMANDS
// =============================================================================

// Command represents a CLI command.
type Command int

const (
	CmdTUI Command = iota
	CmdStart
	CmdStop
	CmdRestart
	CmdStatus
	CmdCurrentConfig
	CmdViewPromptFile
	CmdEditConfig
	CmdConfig
	CmdRename
	CmdRenameSelection
	CmdProcessExisting
	CmdDaemon
	CmdInfoLogs
	CmdErrorLogs
	CmdLogin
	CmdSignup
	CmdLogout
	CmdWhoami
	CmdHistory
	CmdVersion
	CmdHelp
	CmdUnknown
)

var commandNames = map[Command]string{
	CmdTUI:             "tui",
	CmdStart:           "start",
	CmdStop:            "stop",
	CmdRestart:         "restart",
	CmdStatus:          "status",
	CmdCurrentConfig:   "current-config",
	CmdViewPromptFile:  "view-prompt-file",
	CmdEditConfig:      "edit-config",
	CmdConfig:          "config",
	CmdRename:          "rename",
	CmdRenameSelection: "rename-selection",
	CmdProcessExisting: "process-existing-screenshots",
	CmdDaemon:          "daemon",
	CmdInfoLogs:        "info-logs",
	CmdErrorLogs:       "error-logs",
	CmdLogin:           "login",
	CmdSignup:          "signup",
	CmdLogout:          "logout",
	CmdWhoami:          "whoami",
	CmdHistory:         "history",
	CmdVersion:         "version",
	CmdHelp:            "help",
}

// String returns the command name as typed on the command line.
func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return "unknown"
}

// Args holds parsed command-line arguments.
type Args struct {
	// Global flags
	Verbose bool
	JSON    bool
	Yes     bool

	// Name is what the user typed for the command.
	Name string

	// Command-specific arguments, parsed by the handler with NewArgParser.
	Raw []string
}

// =============================================================================
// USAGE
// =============================================================================

const usageText = `peeksy - AI screenshot renamer

USAGE:
  peeksy [command] [options]

COMMANDS:
  (none), tui                    Open the terminal UI (home, account, settings)

  Daemon:
    start                        Start the background screenshot watcher
    stop                         Stop the watcher
    restart                      Restart the watcher
    status                       Show whether the watcher is running
    daemon                       Run the watcher in the foreground
    info-logs                    Print the info log path
    error-logs                   Print the error log path

  Configuration:
    current-config               Print the configuration as JSON
    view-prompt-file             Render the prompt file
    edit-config                  Edit the configuration interactively
    config show                  Show every setting (secrets masked)
    config get <key>             Print one setting
    config set <key> <value>     Change one setting
    config path                  Print the config file path

  Renaming:
    rename <file>...             Rename image files now
    rename-selection             Rename the files selected in Finder
    process-existing-screenshots Rename every screenshot in the screenshot folder
    history [--limit N]          Show recent renames

  Account:
    login                        Sign in
    signup                       Create an account
    logout                       Sign out
    whoami                       Show the signed-in account

  version                        Show version information
  help                           Show this help

GLOBAL OPTIONS:
  -v, --verbose    Debug logging
  --json           Machine-readable output where supported
  -y, --yes        Answer yes to confirmation prompts

CONFIG:
  Stored in the peeksy config directory (override with PEEKSY_HOME).
  OPENAI_API_KEY and PEEKSY_* environment variables override the file.
`

// PrintUsage writes the usage text to stdout.
func PrintUsage() {
	fmt.Print(usageText)
}

// PrintVersion writes version information to stdout.
func PrintVersion() {
	fmt.Printf("peeksy %s\n", Version)
	fmt.Printf("  Commit:  %s\n", GitCommit)
	fmt.Printf("  Built:   %s\n", BuildDate)
	fmt.Printf("  Go:      %s\n", runtime.Version())
	fmt.Printf("  OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// =============================================================================
// PARSING
// =============================================================================

// Parse parses os.Args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses the arguments after the program name.
func ParseArgs(argv []string) (Command, Args) {
	remaining, args := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdTUI, args
	}

	name := strings.ToLower(remaining[0])
	args.Name = remaining[0]
	args.Raw = remaining[1:]

	switch name {
	case "tui", "ui":
		return CmdTUI, args
	case "start":
		return CmdStart, args
	case "stop":
		return CmdStop, args
	case "restart":
		return CmdRestart, args
	case "status", "s":
		return CmdStatus, args
	case "current-config":
		return CmdCurrentConfig, args
	case "view-prompt-file", "prompt":
		return CmdViewPromptFile, args
	case "edit-config":
		return CmdEditConfig, args
	case "config":
		return CmdConfig, args
	case "rename":
		return CmdRename, args
	case "rename-selection":
		return CmdRenameSelection, args
	case "process-existing-screenshots":
		return CmdProcessExisting, args
	case "daemon":
		return CmdDaemon, args
	case "info-logs":
		return CmdInfoLogs, args
	case "error-logs":
		return CmdErrorLogs, args
	case "login", "signin":
		return CmdLogin, args
	case "signup", "register":
		return CmdSignup, args
	case "logout", "signout":
		return CmdLogout, args
	case "whoami":
		return CmdWhoami, args
	case "history":
		return CmdHistory, args
	case "version", "--version":
		return CmdVersion, args
	case "help", "-h", "--help":
		return CmdHelp, args
	default:
		return CmdUnknown, args
	}
}

// parseGlobalFlags extracts global flags wherever they appear.
func parseGlobalFlags(argv []string) ([]string, Args) {
	var remaining []string
	var args Args
	for _, arg := range argv {
		switch arg {
		case "-v", "--verbose":
			args.Verbose = true
		case "--json":
			args.JSON = true
		case "-y", "--yes", "--confirm":
			args.Yes = true
		default:
			remaining = append(remaining, arg)
		}
	}
	return remaining, args
}

// UnknownCommandError reports a command that is not recognised, with a
// suggestion when one is close.
func UnknownCommandError(name string) error {
	msg := fmt.Sprintf("unknown command %q", name)
	if s := SuggestCommand(name); s != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", s)
	}
	return &ValidationError{Value: name, Reason: msg + "; run 'peeksy help' for usage"}
}
