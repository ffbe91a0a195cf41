// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// rename_cmd.go - rename, rename-selection and process-existing-screenshots.
package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/anubhavitis/peeksy/internal/renamer"
)

// ImageProcessor renames one image on demand.
type ImageProcessor interface {
	ProcessImage(ctx context.Context, path string) (renamer.Result, error)
}

// RenameAll renames paths with at most concurrency calls in flight, printing
// one line per file. Individual failures do not stop the batch; the
// returned error summarises them.
func RenameAll(ctx context.Context, env *Env, proc ImageProcessor, paths []string, concurrency int) error {
	if concurrency < 1 {
		concurrency = 1
	}

	var (
		mu     sync.Mutex
		failed int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, path := range paths {
		g.Go(func() error {
			res, err := proc.ProcessImage(gctx, path)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				env.logger().Error("rename failed", "path", path, "err", err)
				fmt.Fprintf(env.Stderr, "%s %s: %v\n", ErrorStyle.Render("x"), filepath.Base(path), err)
				return nil
			}
			fmt.Fprintf(env.Stdout, "%s %s -> %s\n", SuccessStyle.Render("ok"),
				filepath.Base(res.From), filepath.Base(res.To))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be renamed; see 'peeksy error-logs'", failed, len(paths))
	}
	return nil
}

// HandleRename renames the image files named on the command line.
func HandleRename(ctx context.Context, env *Env) error {
	p := NewArgParser(env.Args.Raw)
	paths := p.PositionalFrom(0)
	if len(paths) == 0 {
		return ErrMissingArgument("file", "peeksy rename <file>...")
	}
	for i, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		if !renamer.IsImage(abs) {
			return NewValidationError("file", path, "is not an image (png, jpg, jpeg, gif, webp, heic, heif, bmp, tiff)")
		}
		paths[i] = abs
	}

	r, cleanup, err := env.Renamer()
	if err != nil {
		return err
	}
	defer cleanup()
	return RenameAll(ctx, env, r, paths, env.Config.Daemon.Concurrency)
}

// HandleRenameSelection renames the images selected in Finder.
func HandleRenameSelection(ctx context.Context, env *Env) error {
	selected, err := renamer.FinderSelection(ctx, env.Run)
	if err != nil {
		return err
	}
	var images []string
	for _, path := range selected {
		if renamer.IsImage(path) {
			images = append(images, path)
		} else {
			fmt.Fprintf(env.Stderr, "%s %s: not an image, skipped\n", WarningStyle.Render("-"), filepath.Base(path))
		}
	}
	if len(images) == 0 {
		return fmt.Errorf("none of the %d selected files is an image", len(selected))
	}

	r, cleanup, err := env.Renamer()
	if err != nil {
		return err
	}
	defer cleanup()
	return RenameAll(ctx, env, r, images, env.Config.Daemon.Concurrency)
}

// HandleProcessExisting renames every screenshot already in the screenshot
// folder after a y/n confirmation.
func HandleProcessExisting(ctx context.Context, env *Env) error {
	if err := env.Config.Ready(); err != nil {
		return err
	}
	dir, err := env.ScreenshotDir(ctx)
	if err != nil {
		return err
	}
	shots, err := renamer.ListScreenshots(dir)
	if err != nil {
		return err
	}

	fmt.Fprintf(env.Stdout, "Found %d screenshots in %s\n", len(shots), dir)
	if len(shots) == 0 {
		return nil
	}
	ok, err := Confirm(env.Stdin, env.Stdout, "Do you want to continue?", ConfirmationOptions{
		Yes:         env.Args.Yes,
		JSONMode:    env.Args.JSON,
		Interactive: env.Interactive,
	})
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(env.Stdout, "Exiting...")
		return nil
	}

	r, cleanup, err := env.Renamer()
	if err != nil {
		return err
	}
	defer cleanup()
	return RenameAll(ctx, env, r, shots, env.Config.Daemon.Concurrency)
}
