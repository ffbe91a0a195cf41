// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"

	"github.com/anubhavitis/peeksy/internal/logging"
)

// Run executes cmd. Version, help and unknown commands need no setup; every
// other command loads the environment first.
func Run(ctx context.Context, cmd Command, args Args) error {
	switch cmd {
	case CmdVersion:
		PrintVersion()
		return nil
	case CmdHelp:
		PrintUsage()
		return nil
	case CmdUnknown:
		return UnknownCommandError(args.Name)
	}

	env, err := NewEnv(args, EnvOptions{Console: cmd != CmdTUI})
	if err != nil {
		return err
	}
	defer env.Close()

	return Dispatch(ctx, env, cmd)
}

// Dispatch runs cmd against an existing environment.
func Dispatch(ctx context.Context, env *Env, cmd Command) error {
	env.logger().Debug("command", "name", cmd.String())

	switch cmd {
	case CmdTUI:
		return RunTUI(ctx, env)

	case CmdStart, CmdStop, CmdRestart, CmdStatus:
		mgr, err := NewServiceManager(env)
		if err != nil {
			return err
		}
		switch cmd {
		case CmdStart:
			return HandleStart(ctx, env, mgr)
		case CmdStop:
			return HandleStop(ctx, env, mgr)
		case CmdRestart:
			return HandleRestart(ctx, env, mgr)
		default:
			return HandleStatus(ctx, env, mgr)
		}

	case CmdDaemon:
		return HandleDaemon(ctx, env)
	case CmdInfoLogs:
		return HandleLogs(env, logging.InfoLogFile)
	case CmdErrorLogs:
		return HandleLogs(env, logging.ErrorLogFile)

	case CmdCurrentConfig:
		return HandleCurrentConfig(env)
	case CmdViewPromptFile:
		return HandleViewPromptFile(env)
	case CmdEditConfig:
		return HandleEditConfig(env)
	case CmdConfig:
		return HandleConfig(env)

	case CmdRename:
		return HandleRename(ctx, env)
	case CmdRenameSelection:
		return HandleRenameSelection(ctx, env)
	case CmdProcessExisting:
		return HandleProcessExisting(ctx, env)
	case CmdHistory:
		return HandleHistory(ctx, env)

	case CmdLogin, CmdSignup, CmdLogout, CmdWhoami:
		store, closeStore, err := env.AuthStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore()
		switch cmd {
		case CmdLogin:
			return HandleLogin(ctx, env, store, false)
		case CmdSignup:
			return HandleLogin(ctx, env, store, true)
		case CmdLogout:
			return HandleLogout(ctx, env, store)
		default:
			return HandleWhoami(ctx, env, store)
		}

	case CmdVersion:
		PrintVersion()
		return nil
	case CmdHelp:
		PrintUsage()
		return nil
	}
	return UnknownCommandError(env.Args.Name)
}
