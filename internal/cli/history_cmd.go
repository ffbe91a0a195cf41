// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/mattn/go-runewidth"

	"github.com/anubhavitis/peeksy/internal/config"
	"github.com/anubhavitis/peeksy/internal/history"
	"github.com/anubhavitis/peeksy/internal/util"
)

// HandleHistory lists recent renames, newest first.
func HandleHistory(ctx context.Context, env *Env) error {
	p := NewArgParser(env.Args.Raw)
	limit, err := p.FlagIntOrDefault(history.DefaultListLimit, "limit", "n")
	if err != nil {
		return err
	}

	path, err := config.HistoryPath()
	if err != nil {
		return err
	}
	db, err := history.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	entries, err := db.List(ctx, limit)
	if err != nil {
		return err
	}

	if env.Args.JSON {
		return NewJSONResponse("history", historyItems(entries)).Write(env.Stdout)
	}
	if len(entries) == 0 {
		fmt.Fprintln(env.Stdout, "No renames yet.")
		return nil
	}
	WriteHistoryTable(env.Stdout, entries, GetTerminalWidth())
	return nil
}

// WriteHistoryTable prints entries as aligned columns that fit width.
// Names are compared by display width so wide characters line up.
func WriteHistoryTable(w io.Writer, entries []history.Entry, width int) {
	const whenWidth = 16
	nameWidth := (width - whenWidth - 8) / 2
	if nameWidth < 12 {
		nameWidth = 12
	}

	cell := func(s string, n int) string {
		return runewidth.FillRight(util.TruncateWidth(s, n), n)
	}

	fmt.Fprintf(w, "%s  %s  %s\n",
		cell("WHEN", whenWidth), cell("FROM", nameWidth), "TO")
	fmt.Fprintln(w, RenderSeparator(min(width, whenWidth+2*nameWidth+8)))
	for _, e := range entries {
		fmt.Fprintf(w, "%s  %s  %s\n",
			cell(e.RenamedAt.Local().Format("2006-01-02 15:04"), whenWidth),
			cell(filepath.Base(e.OriginalPath), nameWidth),
			util.TruncateWidth(filepath.Base(e.NewPath), nameWidth))
	}
}
