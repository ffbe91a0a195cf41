// peeksy - names your screenshots for you.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/anubhavitis/peeksy/internal/cli"
)

// Version information (set at build time)
var (
	Version   = "0.4.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Run(ctx, cmd, args)
	stop()

	if err == nil || errors.Is(err, cli.ErrCancelled) {
		return
	}
	if args.JSON {
		_ = cli.NewJSONErrorResponse(cmd.String(), err).Write(os.Stdout)
	} else {
		fmt.Fprintf(os.Stderr, "%s %v\n", cli.ErrorStyle.Render("Error:"), err)
	}
	os.Exit(cli.GetExitCode(err))
}
