// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package renamer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anubhavitis/peeksy/internal/history"
	"github.com/anubhavitis/peeksy/internal/util"
)

type fakeNamer struct {
	name    string
	err     error
	mu      sync.Mutex
	prompts []string
}

func (f *fakeNamer) NameImage(_ context.Context, _ string, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	return f.name, f.err
}

type memRecorder struct {
	entries []history.Entry
}

func (m *memRecorder) Record(_ context.Context, e history.Entry) error {
	m.entries = append(m.entries, e)
	return nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func newTestRenamer(t *testing.T, namer Namer, opts ...Option) (*Renamer, string) {
	t.Helper()
	dir := t.TempDir()
	prompt := filepath.Join(dir, "prompt.txt")
	writeFile(t, prompt, "  describe it  \n")
	opts = append([]Option{WithPromptFile(prompt), WithSettle(0)}, opts...)
	return New(namer, opts...), dir
}

func TestIsScreenshot(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/d/Screenshot 2025-01-01 at 10.00.00.png", true},
		{"/d/.Screenshot 2025-01-01 at 10.00.00.png", true},
		{"/d/Screen Shot 2020-01-01.png", true},
		{"/d/my screen shot.png", true},
		{"/d/screenshot.PNG", true},
		{"/d/Screenshot 2025.jpg", false},
		{"/d/screenshot-ss.png", false},
		{"/d/holiday.png", false},
		{"/d/Screenshot", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsScreenshot(tt.path), tt.path)
	}
}

func TestIsImage(t *testing.T) {
	for _, p := range []string{"a.png", "a.JPG", "a.jpeg", "a.heic", "a.webp", "a.tif"} {
		assert.True(t, IsImage(p), p)
	}
	for _, p := range []string{"a.txt", "a", "a.pdf", "png"} {
		assert.False(t, IsImage(p), p)
	}
}

func TestFixHiddenName(t *testing.T) {
	assert.Equal(t, filepath.Join("/d", "Screenshot 1.png"), FixHiddenName("/d/.Screenshot 1.png"))
	assert.Equal(t, "/d/Screenshot 1.png", FixHiddenName("/d/Screenshot 1.png"))
}

func TestIsRecent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Screenshot.png")
	writeFile(t, path, "x")

	now := time.Now()
	assert.True(t, IsRecent(path, time.Minute, now))

	old := now.Add(-2 * time.Minute)
	require.NoError(t, os.Chtimes(path, old, old))
	assert.False(t, IsRecent(path, time.Minute, now))
	assert.False(t, IsRecent(filepath.Join(dir, "missing.png"), time.Minute, now))
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Quarterly Revenue Chart":   "quarterly-revenue-chart",
		"already-slugged_name":      "already-slugged-name",
		"  Café  menu!! ":           "cafe-menu",
		"login-screen.png":          "login-screen",
		"v1.2 release notes":        "v1-2-release-notes",
		"":                          UnknownName,
		"!!!":                       UnknownName,
		"日本語":                       UnknownName,
		"Error: 404 -- Not   Found": "error-404-not-found",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), in)
	}

	long := Slugify("a" + strings.Repeat("b", 300))
	assert.Len(t, long, maxSlugLen)
}

func TestUniqueTarget(t *testing.T) {
	dir := t.TempDir()

	got, err := UniqueTarget(dir, "chart", ".png", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "chart.png"), got)

	writeFile(t, filepath.Join(dir, "chart.png"), "x")
	writeFile(t, filepath.Join(dir, "chart-2.png"), "x")
	got, err = UniqueTarget(dir, "chart", ".png", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "chart-3.png"), got)

	// The file being renamed may keep its own name.
	self := filepath.Join(dir, "chart.png")
	got, err = UniqueTarget(dir, "chart", ".png", self)
	require.NoError(t, err)
	assert.Equal(t, self, got)
}

func TestProcessNew_RenamesHiddenScreenshot(t *testing.T) {
	namer := &fakeNamer{name: "Login Form Error"}
	rec := &memRecorder{}
	r, dir := newTestRenamer(t, namer, WithHistory(rec), WithModel("gpt-4o"))

	final := filepath.Join(dir, "Screenshot 2025-01-01 at 10.00.00.png")
	writeFile(t, final, "pngdata")

	res, err := r.ProcessNew(context.Background(), filepath.Join(dir, ".Screenshot 2025-01-01 at 10.00.00.png"))
	require.NoError(t, err)

	assert.Equal(t, final, res.From)
	assert.Equal(t, filepath.Join(dir, "login-form-error.png"), res.To)
	assert.NoFileExists(t, final)

	data, err := os.ReadFile(res.To)
	require.NoError(t, err)
	assert.Equal(t, "pngdata", string(data))

	assert.Equal(t, []string{"describe it"}, namer.prompts)
	require.Len(t, rec.entries, 1)
	assert.Equal(t, final, rec.entries[0].OriginalPath)
	assert.Equal(t, res.To, rec.entries[0].NewPath)
	assert.Equal(t, "gpt-4o", rec.entries[0].Model)
}

func TestProcessNew_Rejections(t *testing.T) {
	namer := &fakeNamer{name: "x"}
	r, dir := newTestRenamer(t, namer)

	notShot := filepath.Join(dir, "holiday.png")
	writeFile(t, notShot, "x")
	_, err := r.ProcessNew(context.Background(), notShot)
	assert.ErrorIs(t, err, ErrNotScreenshot)

	old := filepath.Join(dir, "Screenshot old.png")
	writeFile(t, old, "x")
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))
	_, err = r.ProcessNew(context.Background(), old)
	assert.ErrorIs(t, err, ErrTooOld)
	assert.FileExists(t, old)

	_, err = r.ProcessNew(context.Background(), filepath.Join(dir, "Screenshot gone.png"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	assert.Empty(t, namer.prompts, "namer must not be called for rejected files")
}

func TestProcessNew_UsesClock(t *testing.T) {
	namer := &fakeNamer{name: "standup notes"}
	written := time.Now().Add(-3 * time.Hour)
	r, dir := newTestRenamer(t, namer, WithClock(func() time.Time { return written.Add(10 * time.Second) }))

	shot := filepath.Join(dir, "Screenshot 2025-01-01 at 09.00.00.png")
	writeFile(t, shot, "x")
	require.NoError(t, os.Chtimes(shot, written, written))

	res, err := r.ProcessNew(context.Background(), shot)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(res.To))
	assert.NoFileExists(t, shot)
}

func TestProcessImage_SameNameKeepsFile(t *testing.T) {
	rec := &memRecorder{}
	r, dir := newTestRenamer(t, &fakeNamer{name: "Cat on sofa"}, WithHistory(rec))

	src := filepath.Join(dir, "cat-on-sofa.png")
	writeFile(t, src, "whiskers")

	res, err := r.ProcessImage(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, Result{From: src, To: src}, res)

	data, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, "whiskers", string(data))
	assert.Empty(t, rec.entries, "nothing was renamed")
}

func TestProcessImage_KeepsExtensionAndAvoidsCollision(t *testing.T) {
	namer := &fakeNamer{name: "sunset"}
	r, dir := newTestRenamer(t, namer)

	writeFile(t, filepath.Join(dir, "sunset.jpg"), "existing")
	src := filepath.Join(dir, "IMG_0001.jpg")
	writeFile(t, src, "new")
	past := time.Now().Add(-24 * time.Hour)
	require.NoError(t, os.Chtimes(src, past, past))

	res, err := r.ProcessImage(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "sunset-2.jpg"), res.To)
	assert.NoFileExists(t, src)

	data, err := os.ReadFile(filepath.Join(dir, "sunset.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "existing", string(data))
}

func TestProcessImage_Errors(t *testing.T) {
	r, dir := newTestRenamer(t, &fakeNamer{err: errors.New("api down")})

	txt := filepath.Join(dir, "notes.txt")
	writeFile(t, txt, "x")
	_, err := r.ProcessImage(context.Background(), txt)
	assert.ErrorIs(t, err, ErrNotImage)

	img := filepath.Join(dir, "a.png")
	writeFile(t, img, "x")
	_, err = r.ProcessImage(context.Background(), img)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api down")
	assert.FileExists(t, img, "original survives a naming failure")

	noPrompt := New(&fakeNamer{name: "x"}, WithPromptFile(filepath.Join(dir, "missing.txt")))
	_, err = noPrompt.ProcessImage(context.Background(), img)
	assert.ErrorIs(t, err, ErrPromptMissing)
}

func TestScreenshotDir(t *testing.T) {
	home := "/Users/me"
	fixed := func(out string, err error) util.Runner {
		return func(context.Context, string, ...string) ([]byte, error) {
			return []byte(out), err
		}
	}

	ctx := context.Background()
	assert.Equal(t, "/Users/me/Pictures/Shots", ScreenshotDir(ctx, fixed("~/Pictures/Shots\n", nil), home))
	assert.Equal(t, "/Users/me/Shots", ScreenshotDir(ctx, fixed("/Users/me/Shots\n", nil), home))
	assert.Equal(t, "/Users/me/Desktop", ScreenshotDir(ctx, fixed("/Volumes/ext\n", nil), home))
	assert.Equal(t, "/Users/me/Desktop", ScreenshotDir(ctx, fixed("", errors.New("does not exist")), home))
	assert.Equal(t, "/Users/me/Desktop", ScreenshotDir(ctx, nil, home))
}

func TestFinderSelection(t *testing.T) {
	var gotName string
	run := func(_ context.Context, name string, _ ...string) ([]byte, error) {
		gotName = name
		return []byte("/Users/me/a.png\n/Users/me/folder/\n\n/Users/me/b.jpg\n"), nil
	}

	paths, err := FinderSelection(context.Background(), run)
	require.NoError(t, err)
	assert.Equal(t, "osascript", gotName)
	assert.Equal(t, []string{"/Users/me/a.png", "/Users/me/b.jpg"}, paths)

	empty := func(context.Context, string, ...string) ([]byte, error) { return []byte("\n"), nil }
	_, err = FinderSelection(context.Background(), empty)
	assert.ErrorIs(t, err, ErrNoSelection)
}

func TestListScreenshots(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Screenshot 1.png"), "x")
	writeFile(t, filepath.Join(dir, ".Screenshot 2.png"), "x")
	writeFile(t, filepath.Join(dir, "photo.png"), "x")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "Screenshot dir.png"), 0755))

	got, err := ListScreenshots(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "Screenshot 1.png")}, got)
}
