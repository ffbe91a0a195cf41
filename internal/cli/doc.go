// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli parses the peeksy command line and implements every
// non-interactive command.
//
// # Key Types
//
//   - Command: enumeration of the available commands
//   - Args: parsed global flags plus the remaining raw arguments
//   - ArgParser: flag/positional parsing for command-specific arguments
//   - Env: the loaded config and logger shared by handlers
//
// # Usage
//
//	cmd, args := cli.Parse()
//	if err := cli.Run(ctx, cmd, args); err != nil {
//	    fmt.Fprintf(os.Stderr, "Error: %v\n", err)
//	    os.Exit(cli.GetExitCode(err))
//	}
//
// # Commands Overview
//
// Daemon: start, stop, restart, status, daemon, info-logs, error-logs.
// Config: current-config, view-prompt-file, edit-config, config.
// Renaming: rename, rename-selection, process-existing-screenshots, history.
// Account: login, signup, logout, whoami.
//
// status, whoami, history and config show accept --json.
package cli
