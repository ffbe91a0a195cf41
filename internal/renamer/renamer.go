// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package renamer gives screenshots and other images descriptive names.
//
// A file is renamed by asking the namer for a name, copying the file to
// <dir>/<slug><ext> (suffixing -2, -3... on collision) and deleting the
// original. Every rename is recorded in the history when one is attached.
package renamer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/anubhavitis/peeksy/internal/history"
	"github.com/anubhavitis/peeksy/internal/logging"
)

// =============================================================================
// TYPES
// =============================================================================

// Namer suggests a filename (without extension) for an image.
type Namer interface {
	NameImage(ctx context.Context, path, prompt string) (string, error)
}

// Recorder stores completed renames.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) error
}

// Result describes a completed rename.
type Result struct {
	From string
	To   string
}

var (
	// ErrNotScreenshot is returned by ProcessNew for files that are not
	// macOS screenshots.
	ErrNotScreenshot = errors.New("not a screenshot")

	// ErrTooOld is returned by ProcessNew for screenshots older than the max age.
	ErrTooOld = errors.New("screenshot is too old")

	// ErrNotImage is returned by ProcessImage for non-image files.
	ErrNotImage = errors.New("not an image")

	// ErrPromptMissing is returned when the prompt file cannot be read.
	ErrPromptMissing = errors.New("prompt file not found; run `peeksy edit-config` to set it")
)

// DefaultMaxAge is how recent a screenshot must be for ProcessNew.
const DefaultMaxAge = 60 * time.Second

// imageExts are the extensions ProcessImage accepts.
var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
	".heic": true, ".heif": true, ".bmp": true, ".tiff": true, ".tif": true,
}

// =============================================================================
// RENAMER
// =============================================================================

// Renamer renames image files.
type Renamer struct {
	namer      Namer
	promptPath string
	model      string
	maxAge     time.Duration
	settle     time.Duration
	history    Recorder
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures a Renamer.
type Option func(*Renamer)

// WithPromptFile sets the prompt file sent along with each image.
func WithPromptFile(path string) Option { return func(r *Renamer) { r.promptPath = path } }

// WithModel records the model name in history entries.
func WithModel(model string) Option { return func(r *Renamer) { r.model = model } }

// WithMaxAge sets the recency window for ProcessNew.
func WithMaxAge(d time.Duration) Option {
	return func(r *Renamer) {
		if d > 0 {
			r.maxAge = d
		}
	}
}

// WithSettle sets how long ProcessNew waits for macOS to move a hidden
// in-progress capture to its final name.
func WithSettle(d time.Duration) Option { return func(r *Renamer) { r.settle = d } }

// WithHistory attaches a rename recorder.
func WithHistory(h Recorder) Option { return func(r *Renamer) { r.history = h } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Renamer) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(r *Renamer) { r.now = now } }

// New creates a Renamer.
func New(namer Namer, opts ...Option) *Renamer {
	r := &Renamer{
		namer:  namer,
		maxAge: DefaultMaxAge,
		settle: 2 * time.Second,
		logger: logging.Discard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ProcessNew renames a freshly captured screenshot. path may be the hidden
// ".Screenshot…" name macOS writes first.
func (r *Renamer) ProcessNew(ctx context.Context, path string) (Result, error) {
	if !IsScreenshot(path) {
		return Result{}, fmt.Errorf("%w: %s", ErrNotScreenshot, path)
	}
	path = FixHiddenName(path)

	if err := r.waitFor(ctx, path); err != nil {
		return Result{}, err
	}
	if !IsRecent(path, r.maxAge, r.now()) {
		return Result{}, fmt.Errorf("%w: %s", ErrTooOld, path)
	}
	return r.rename(ctx, path)
}

// ProcessImage renames any image regardless of its name or age.
func (r *Renamer) ProcessImage(ctx context.Context, path string) (Result, error) {
	if !IsImage(path) {
		return Result{}, fmt.Errorf("%w: %s", ErrNotImage, path)
	}
	return r.rename(ctx, path)
}

// waitFor polls until path exists or the settle window passes.
func (r *Renamer) waitFor(ctx context.Context, path string) error {
	deadline := time.Now().Add(r.settle)
	for {
		if _, err := os.Stat(path); err == nil {
			return nil
		} else if !os.IsNotExist(err) {
			return err
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("screenshot never appeared: %w", os.ErrNotExist)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func (r *Renamer) rename(ctx context.Context, path string) (Result, error) {
	if _, err := os.Stat(path); err != nil {
		return Result{}, err
	}
	prompt, err := r.prompt()
	if err != nil {
		return Result{}, err
	}

	suggested, err := r.namer.NameImage(ctx, path, prompt)
	if err != nil {
		return Result{}, fmt.Errorf("naming %s: %w", filepath.Base(path), err)
	}

	ext := filepath.Ext(path)
	target, err := UniqueTarget(filepath.Dir(path), Slugify(suggested), ext, path)
	if err != nil {
		return Result{}, err
	}
	if target == path {
		r.logger.Info("name unchanged", "file", filepath.Base(path))
		return Result{From: path, To: path}, nil
	}
	if err := copyFile(path, target); err != nil {
		return Result{}, fmt.Errorf("failed to copy file: %s -> %s: %w", path, target, err)
	}
	if err := os.Remove(path); err != nil {
		return Result{}, fmt.Errorf("failed to delete file: %s: %w", path, err)
	}

	res := Result{From: path, To: target}
	r.logger.Info("renamed", "from", filepath.Base(path), "to", filepath.Base(target))

	if r.history != nil {
		if err := r.history.Record(ctx, history.Entry{
			OriginalPath: path,
			NewPath:      target,
			Model:        r.model,
			RenamedAt:    r.now(),
		}); err != nil {
			r.logger.Warn("failed to record rename", "err", err)
		}
	}
	return res, nil
}

func (r *Renamer) prompt() (string, error) {
	if r.promptPath == "" {
		return "", ErrPromptMissing
	}
	data, err := os.ReadFile(r.promptPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w (%s)", ErrPromptMissing, r.promptPath)
		}
		return "", fmt.Errorf("read prompt file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

// IsScreenshot reports whether path looks like a macOS screenshot:
// "Screenshot…" or "Screen Shot…", optionally hidden, with a .png extension.
// Names ending in "-ss" are excluded.
func IsScreenshot(path string) bool {
	name := strings.ToLower(filepath.Base(path))
	name = strings.TrimPrefix(name, ".")
	if filepath.Ext(name) != ".png" {
		return false
	}
	stem := strings.TrimSuffix(name, ".png")
	return (strings.HasPrefix(stem, "screenshot") || strings.Contains(stem, "screen shot")) &&
		!strings.HasSuffix(stem, "-ss")
}

// IsImage reports whether path has a supported image extension.
func IsImage(path string) bool {
	return imageExts[strings.ToLower(filepath.Ext(path))]
}

// IsRecent reports whether path was modified less than maxAge before now.
func IsRecent(path string, maxAge time.Duration, now time.Time) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return now.Sub(info.ModTime()) < maxAge
}

// FixHiddenName strips the leading dot macOS puts on in-progress captures.
func FixHiddenName(path string) string {
	base := filepath.Base(path)
	if !strings.HasPrefix(base, ".") || len(base) == 1 {
		return path
	}
	return filepath.Join(filepath.Dir(path), base[1:])
}

// =============================================================================
// FILE OPERATIONS
// =============================================================================

// UniqueTarget returns dir/name+ext, or dir/name-N+ext when taken. self is
// the file being renamed and never counts as a collision.
func UniqueTarget(dir, name, ext, self string) (string, error) {
	for i := 1; i < 10000; i++ {
		candidate := name + ext
		if i > 1 {
			candidate = fmt.Sprintf("%s-%d%s", name, i, ext)
		}
		full := filepath.Join(dir, candidate)
		if full == self {
			return full, nil
		}
		if _, err := os.Lstat(full); os.IsNotExist(err) {
			return full, nil
		} else if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("no free name for %s%s in %s", name, ext, dir)
}

func copyFile(src, dst string) error {
	if src == dst {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
