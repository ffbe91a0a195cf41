// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anubhavitis/peeksy/internal/auth"
	"github.com/anubhavitis/peeksy/internal/config"
	"github.com/anubhavitis/peeksy/internal/daemon"
	"github.com/anubhavitis/peeksy/internal/history"
	"github.com/anubhavitis/peeksy/internal/host"
	"github.com/anubhavitis/peeksy/internal/logging"
	"github.com/anubhavitis/peeksy/internal/renamer"
	"github.com/anubhavitis/peeksy/internal/ui/authform"
)

// =============================================================================
// HELPERS
// =============================================================================

type testEnv struct {
	*Env
	dir    string
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

// newTestEnv isolates the config dir and captures output. raw becomes the
// command arguments.
func newTestEnv(t *testing.T, raw ...string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("PEEKSY_HOME", dir)
	for _, name := range []string{
		"PEEKSY_OPENAI_API_KEY", "OPENAI_API_KEY", "PEEKSY_OPENAI_MODEL",
		"PEEKSY_PROMPT_FILE", "PEEKSY_SUPABASE_URL", "VITE_SUPABASE_URL",
		"PEEKSY_SUPABASE_ANON_KEY", "VITE_SUPABASE_ANON_KEY",
		"PEEKSY_SCREENSHOT_DIR", "PEEKSY_LOG_LEVEL",
	} {
		t.Setenv(name, "")
	}

	cfg := config.Default()
	cfg.OpenAI.PromptFilePath = filepath.Join(dir, "prompt.txt")
	cfg.Log.Dir = filepath.Join(dir, "logs")

	te := &testEnv{dir: dir, stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}
	te.Env = &Env{
		Config: cfg,
		Logger: logging.Discard(),
		Args:   Args{Raw: raw},
		Stdin:  strings.NewReader(""),
		Stdout: te.stdout,
		Stderr: te.stderr,
		Run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return nil, fmt.Errorf("unexpected command %s", name)
		},
		Executable: "/usr/local/bin/peeksy",
	}
	return te
}

func (te *testEnv) ready() *testEnv {
	te.Config.OpenAI.APIKey = "sk-test-1234567890"
	return te
}

// =============================================================================
// CONFIRMATION
// =============================================================================

func TestConfirm(t *testing.T) {
	interactive := ConfirmationOptions{Interactive: true}
	tests := []struct {
		name    string
		input   string
		opts    ConfirmationOptions
		want    bool
		wantErr bool
	}{
		{"yes flag skips prompt", "", ConfirmationOptions{Yes: true}, true, false},
		{"json needs yes", "y\n", ConfirmationOptions{JSONMode: true, Interactive: true}, false, true},
		{"no terminal needs yes", "y\n", ConfirmationOptions{}, false, true},
		{"y", "y\n", interactive, true, false},
		{"YES", "YES\n", interactive, true, false},
		{"n", "n\n", interactive, false, false},
		{"anything else is no", "sure\n", interactive, false, false},
		{"empty line asks again", "\n\ny\n", interactive, true, false},
		{"eof is no", "", interactive, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := Confirm(strings.NewReader(tt.input), &out, "Continue?", tt.opts)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// =============================================================================
// CONFIG COMMANDS
// =============================================================================

func TestEditConfig(t *testing.T) {
	cfg := config.Default()
	cfg.OpenAI.APIKey = "sk-old"
	cfg.OpenAI.PromptFilePath = "/tmp/prompt.txt"

	answers := map[string]string{
		"OpenAI API key":   "",
		"Prompt file path": "  /tmp/other.txt ",
		"Model":            config.DefaultModel,
	}
	var asked []string
	changed, err := EditConfig(cfg, func(label, current string, secret bool) (string, error) {
		asked = append(asked, label)
		assert.Equal(t, label == "OpenAI API key", secret)
		return answers[label], nil
	})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []string{"OpenAI API key", "Prompt file path", "Model"}, asked)
	assert.Equal(t, "sk-old", cfg.OpenAI.APIKey, "empty answer keeps the value")
	assert.Equal(t, "/tmp/other.txt", cfg.OpenAI.PromptFilePath)
	assert.Equal(t, config.DefaultModel, cfg.OpenAI.Model)
}

func TestEditConfig_NoChanges(t *testing.T) {
	cfg := config.Default()
	changed, err := EditConfig(cfg, func(string, string, bool) (string, error) { return "\n", nil })
	require.NoError(t, err)
	assert.False(t, changed)

	boom := errors.New("boom")
	_, err = EditConfig(cfg, func(string, string, bool) (string, error) { return "", boom })
	assert.ErrorIs(t, err, boom)
}

func TestHandleEditConfig_FromPipe(t *testing.T) {
	te := newTestEnv(t)
	te.Stdin = strings.NewReader("sk-piped-key-123456\n\ngpt-4o-mini\n")

	require.NoError(t, HandleEditConfig(te.Env))
	assert.Contains(t, te.stdout.String(), "Config edited successfully")

	cfg, err := config.LoadForEdit()
	require.NoError(t, err)
	assert.Equal(t, "sk-piped-key-123456", cfg.OpenAI.APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
}

func TestHandleConfig_SetGetPath(t *testing.T) {
	te := newTestEnv(t, "set", "openai.api_key", "sk-secret-abcdef1234")
	require.NoError(t, HandleConfig(te.Env))
	assert.NotContains(t, te.stdout.String(), "sk-secret", "secrets are masked on output")
	assert.Contains(t, te.stdout.String(), "1234")

	cfg, err := config.LoadForEdit()
	require.NoError(t, err)
	assert.Equal(t, "sk-secret-abcdef1234", cfg.OpenAI.APIKey)

	te2 := newTestEnv(t, "path")
	require.NoError(t, HandleConfig(te2.Env))
	assert.Equal(t, filepath.Join(te2.dir, "config.toml"), strings.TrimSpace(te2.stdout.String()))

	te3 := newTestEnv(t, "get", "daemon.max_age_secs")
	require.NoError(t, HandleConfig(te3.Env))
	assert.Equal(t, "60", strings.TrimSpace(te3.stdout.String()))
}

func TestHandleConfig_SetDoesNotPersistEnvOverrides(t *testing.T) {
	te := newTestEnv(t, "set", "openai.model", "gpt-4o-mini")
	t.Setenv("OPENAI_API_KEY", "sk-from-env")

	require.NoError(t, HandleConfig(te.Env))

	data, err := os.ReadFile(filepath.Join(te.dir, "config.toml"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk-from-env")
	assert.Contains(t, string(data), "gpt-4o-mini")
}

func TestHandleConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  []string
	}{
		{"unknown subcommand", []string{"frobnicate"}},
		{"set without value", []string{"set", "openai.model"}},
		{"get unknown key", []string{"get", "openai.nope"}},
		{"set bad type", []string{"set", "daemon.max_age_secs", "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			te := newTestEnv(t, tt.raw...)
			err := HandleConfig(te.Env)
			require.Error(t, err)
			assert.Equal(t, ExitUsageError, GetExitCode(err))
		})
	}
}

func TestHandleConfig_ShowJSON(t *testing.T) {
	te := newTestEnv(t, "show")
	te.Args.JSON = true
	te.Config.OpenAI.APIKey = "sk-abcdefghijkl"

	require.NoError(t, HandleConfig(te.Env))

	var resp struct {
		Success bool              `json:"success"`
		Data    map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(te.stdout.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "***********ijkl", resp.Data["openai.api_key"])
	assert.Equal(t, config.DefaultModel, resp.Data["openai.model"])
}

func TestHandleCurrentConfig_ParsesThroughBridge(t *testing.T) {
	te := newTestEnv(t)
	te.Config.OpenAI.APIKey = "sk-xyz"

	require.NoError(t, HandleCurrentConfig(te.Env))

	obj, err := host.ExtractJSONObject("peeksy banner\n" + te.stdout.String())
	require.NoError(t, err)
	var pc host.PanelConfig
	require.NoError(t, json.Unmarshal([]byte(obj), &pc))
	assert.Equal(t, "sk-xyz", host.Value(pc.OpenAIAPIKey))
	assert.Equal(t, config.DefaultModel, host.Value(pc.OpenAIModel))
}

func TestHandleViewPromptFile(t *testing.T) {
	te := newTestEnv(t)
	require.NoError(t, os.WriteFile(te.Config.OpenAI.PromptFilePath, []byte("Name it well.\n"), 0644))

	require.NoError(t, HandleViewPromptFile(te.Env))
	assert.Contains(t, te.stdout.String(), "Name it well.")

	te.Config.OpenAI.PromptFilePath = ""
	assert.ErrorIs(t, HandleViewPromptFile(te.Env), config.ErrNotReady)
}

// =============================================================================
// LOG COMMANDS
// =============================================================================

func TestHandleLogs(t *testing.T) {
	te := newTestEnv(t)
	require.NoError(t, HandleLogs(te.Env, logging.InfoLogFile))
	assert.Contains(t, te.stdout.String(), "No log yet")

	logDir := te.Config.Log.Dir
	require.NoError(t, os.MkdirAll(logDir, 0700))
	require.NoError(t, os.WriteFile(filepath.Join(logDir, logging.ErrorLogFile), []byte("one\ntwo\nthree\n"), 0600))

	te = newTestEnv(t, "--lines", "2")
	te.Config.Log.Dir = logDir
	require.NoError(t, HandleLogs(te.Env, logging.ErrorLogFile))
	assert.Contains(t, te.stdout.String(), "two\nthree\n")
	assert.NotContains(t, te.stdout.String(), "one")

	te = newTestEnv(t, "--path")
	te.Config.Log.Dir = logDir
	require.NoError(t, HandleLogs(te.Env, logging.InfoLogFile))
	assert.Equal(t, filepath.Join(logDir, logging.InfoLogFile), strings.TrimSpace(te.stdout.String()))
}

func TestTailLines(t *testing.T) {
	assert.Equal(t, "a\nb\n", tailLines("a\nb\n", 0))
	assert.Equal(t, "b\nc\n", tailLines("a\nb\nc\n", 2))
	assert.Equal(t, "a\nb", tailLines("a\nb", 5))
}

// =============================================================================
// RENAME COMMANDS
// =============================================================================

type fakeImageProcessor struct {
	mu       sync.Mutex
	calls    []string
	fail     map[string]error
	inflight int
	peak     int
}

func (f *fakeImageProcessor) ProcessImage(ctx context.Context, path string) (renamer.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, path)
	f.inflight++
	f.peak = max(f.peak, f.inflight)
	err := f.fail[filepath.Base(path)]
	f.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	f.mu.Lock()
	f.inflight--
	f.mu.Unlock()
	if err != nil {
		return renamer.Result{}, err
	}
	return renamer.Result{From: path, To: strings.TrimSuffix(path, ".png") + "-renamed.png"}, nil
}

func TestRenameAll(t *testing.T) {
	te := newTestEnv(t)
	proc := &fakeImageProcessor{fail: map[string]error{"b.png": errors.New("model unavailable")}}
	paths := []string{"/shots/a.png", "/shots/b.png", "/shots/c.png", "/shots/d.png"}

	err := RenameAll(context.Background(), te.Env, proc, paths, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 4")

	assert.Len(t, proc.calls, 4)
	assert.LessOrEqual(t, proc.peak, 2)
	assert.Contains(t, te.stdout.String(), "a.png -> a-renamed.png")
	assert.Contains(t, te.stderr.String(), "b.png: model unavailable")
}

func TestRenameAll_AllSucceed(t *testing.T) {
	te := newTestEnv(t)
	proc := &fakeImageProcessor{}
	require.NoError(t, RenameAll(context.Background(), te.Env, proc, []string{"/x/a.png"}, 0))
	assert.Len(t, proc.calls, 1)
}

func TestHandleRename_Validation(t *testing.T) {
	te := newTestEnv(t)
	err := HandleRename(context.Background(), te.Env)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	te = newTestEnv(t, "notes.txt")
	err = HandleRename(context.Background(), te.Env)
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "file", ve.Field)
}

func TestHandleRename_RequiresConfig(t *testing.T) {
	te := newTestEnv(t, "shot.png")
	err := HandleRename(context.Background(), te.Env)
	assert.ErrorIs(t, err, config.ErrNotReady)
	assert.Equal(t, ExitConfigError, GetExitCode(err))
}

func TestHandleRenameSelection_NoImages(t *testing.T) {
	te := newTestEnv(t).ready()
	te.Run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		require.Equal(t, "osascript", name)
		return []byte("/Users/me/notes.txt\n/Users/me/folder/\n"), nil
	}

	err := HandleRenameSelection(context.Background(), te.Env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "none of the 1 selected files")
	assert.Contains(t, te.stderr.String(), "notes.txt: not an image")
}

func TestHandleProcessExisting_Declined(t *testing.T) {
	te := newTestEnv(t).ready()
	shots := t.TempDir()
	te.Config.Daemon.ScreenshotDir = shots
	for _, name := range []string{"Screenshot 2025-01-01 at 10.00.00.png", "Screenshot 2025-01-02 at 11.00.00.png", "holiday.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(shots, name), []byte("png"), 0644))
	}
	te.Stdin = strings.NewReader("n\n")
	te.Interactive = true

	require.NoError(t, HandleProcessExisting(context.Background(), te.Env))
	assert.Contains(t, te.stdout.String(), "Found 2 screenshots")
	assert.Contains(t, te.stdout.String(), "Exiting...")

	entries, err := os.ReadDir(shots)
	require.NoError(t, err)
	assert.Len(t, entries, 3, "nothing renamed")
}

func TestHandleProcessExisting_NonInteractiveNeedsYes(t *testing.T) {
	te := newTestEnv(t).ready()
	shots := t.TempDir()
	te.Config.Daemon.ScreenshotDir = shots
	require.NoError(t, os.WriteFile(filepath.Join(shots, "Screenshot 1.png"), []byte("png"), 0644))

	err := HandleProcessExisting(context.Background(), te.Env)
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

// =============================================================================
// HISTORY
// =============================================================================

func TestHandleHistory(t *testing.T) {
	te := newTestEnv(t)
	require.NoError(t, HandleHistory(context.Background(), te.Env))
	assert.Contains(t, te.stdout.String(), "No renames yet.")

	path, err := config.HistoryPath()
	require.NoError(t, err)
	db, err := history.Open(path)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, db.Record(context.Background(), history.Entry{
			OriginalPath: fmt.Sprintf("/shots/Screenshot %d.png", i),
			NewPath:      fmt.Sprintf("/shots/name-%d.png", i),
			Model:        "gpt-4o",
			RenamedAt:    time.Date(2025, 1, 1, 10, i, 0, 0, time.UTC),
		}))
	}
	require.NoError(t, db.Close())

	te = newTestEnv(t, "--limit", "2")
	t.Setenv("PEEKSY_HOME", filepath.Dir(path))
	te.Args.JSON = true
	require.NoError(t, HandleHistory(context.Background(), te.Env))

	var resp struct {
		Data []HistoryItem `json:"data"`
	}
	require.NoError(t, json.Unmarshal(te.stdout.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "/shots/name-2.png", resp.Data[0].To, "newest first")
}

func TestWriteHistoryTable(t *testing.T) {
	var buf bytes.Buffer
	WriteHistoryTable(&buf, []history.Entry{{
		OriginalPath: "/s/Screenshot 2025-01-01 at 10.00.00 with a very long suffix.png",
		NewPath:      "/s/スクリーンショット-会議.png",
		RenamedAt:    time.Now(),
	}}, 60)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "WHEN"))
	assert.Contains(t, lines[2], "...")
	assert.Contains(t, lines[2], "スクリーン")
}

// =============================================================================
// SERVICE COMMANDS
// =============================================================================

type fakeManager struct {
	status   daemon.Status
	startErr error
	calls    []string
}

func (f *fakeManager) Name() string { return "fake" }

func (f *fakeManager) Start(context.Context) error {
	f.calls = append(f.calls, "start")
	if f.startErr == nil {
		f.status = daemon.Status{Running: true, PID: 4242}
	}
	return f.startErr
}

func (f *fakeManager) Stop(context.Context) error {
	f.calls = append(f.calls, "stop")
	f.status = daemon.Status{}
	return nil
}

func (f *fakeManager) Status(context.Context) (daemon.Status, error) {
	return f.status, nil
}

func TestHandleStart(t *testing.T) {
	te := newTestEnv(t)
	m := &fakeManager{}
	assert.ErrorIs(t, HandleStart(context.Background(), te.Env, m), config.ErrNotReady)
	assert.Empty(t, m.calls)

	te.ready()
	require.NoError(t, HandleStart(context.Background(), te.Env, m))
	assert.Equal(t, []string{"start"}, m.calls)
	assert.Contains(t, te.stdout.String(), "started successfully")

	te.stdout.Reset()
	require.NoError(t, HandleStart(context.Background(), te.Env, m))
	assert.Equal(t, []string{"start"}, m.calls, "already running")
	assert.Contains(t, te.stdout.String(), "already running (pid 4242)")
}

func TestHandleRestartAndStop(t *testing.T) {
	te := newTestEnv(t).ready()
	m := &fakeManager{status: daemon.Status{Running: true, PID: 1}}

	require.NoError(t, HandleRestart(context.Background(), te.Env, m))
	assert.Equal(t, []string{"stop", "start"}, m.calls)

	require.NoError(t, HandleStop(context.Background(), te.Env, m))
	assert.Equal(t, []string{"stop", "start", "stop"}, m.calls)
	assert.Contains(t, te.stdout.String(), "stopped successfully")
}

func TestHandleStatus(t *testing.T) {
	te := newTestEnv(t).ready()
	te.Config.Daemon.ScreenshotDir = "/tmp/shots"
	te.Args.JSON = true
	m := &fakeManager{status: daemon.Status{Running: true, PID: 77}}

	require.NoError(t, HandleStatus(context.Background(), te.Env, m))
	var resp struct {
		Data StatusData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(te.stdout.Bytes(), &resp))
	assert.Equal(t, StatusData{
		Running: true, PID: 77, Manager: "fake",
		ScreenshotDir: "/tmp/shots", Configured: true,
	}, resp.Data)

	te = newTestEnv(t)
	te.Config.Daemon.ScreenshotDir = "/tmp/shots"
	require.NoError(t, HandleStatus(context.Background(), te.Env, &fakeManager{}))
	assert.Contains(t, te.stdout.String(), "stopped")
	assert.Contains(t, te.stdout.String(), "API key")
}

func TestProcessManager(t *testing.T) {
	dir := t.TempDir()
	pidPath := filepath.Join(dir, "peeksy.pid")
	var spawned []string
	m := processManager{
		binary:  "/bin/peeksy",
		pidPath: pidPath,
		logDir:  dir,
		wait:    time.Second,
		spawn: func(binary, logDir string) (int, error) {
			spawned = append(spawned, binary)
			return 99, nil
		},
	}
	ctx := context.Background()

	st, err := m.Status(ctx)
	require.NoError(t, err)
	assert.False(t, st.Running)
	require.NoError(t, m.Stop(ctx), "stopping a stopped daemon succeeds")

	require.NoError(t, m.Start(ctx))
	assert.Equal(t, []string{"/bin/peeksy"}, spawned)

	// A live pid in the file means running; Start does not spawn again.
	require.NoError(t, os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0600))
	st, err = m.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, daemon.Status{Running: true, PID: os.Getpid()}, st)
	require.NoError(t, m.Start(ctx))
	assert.Len(t, spawned, 1)
}

func TestLaunchdManagerStatus(t *testing.T) {
	te := newTestEnv(t)
	listOut := "PID\tStatus\tLabel\n512\t0\tcom.anubhavitis.peeksy\n"
	te.Run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte(listOut), nil
	}
	home := t.TempDir()
	m := launchdManagerFor(te.Env, home)

	st, err := m.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, daemon.Status{Running: true, PID: 512}, st)

	listOut = "PID\tStatus\tLabel\n"
	st, err = m.Status(context.Background())
	require.NoError(t, err)
	assert.False(t, st.Running)
}

// =============================================================================
// ACCOUNT COMMANDS
// =============================================================================

type fakeAuth struct {
	mu       sync.Mutex
	current  *auth.Identity
	signIns  int
	signInFn func(email, password string) (auth.Identity, error)
}

func (f *fakeAuth) CurrentSession(context.Context) (*auth.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current, nil
}

func (f *fakeAuth) SignIn(_ context.Context, email, password string) (auth.Identity, error) {
	f.mu.Lock()
	f.signIns++
	fn := f.signInFn
	f.mu.Unlock()
	if fn != nil {
		return fn(email, password)
	}
	return auth.Identity{ID: "u-1", Email: email}, nil
}

func (f *fakeAuth) SignUp(_ context.Context, email, _ string) (auth.Identity, error) {
	return auth.Identity{ID: "u-new", Email: email}, nil
}

func (f *fakeAuth) SignOut(context.Context) error { return nil }

func (f *fakeAuth) Subscribe(func(auth.Event)) func() { return func() {} }

func startedAuthStore(t *testing.T, p auth.Provider) *auth.Store {
	t.Helper()
	s := auth.NewStore(p)
	s.Start(context.Background())
	t.Cleanup(s.Close)
	return s
}

func TestHandleLogin(t *testing.T) {
	te := newTestEnv(t)
	te.Stdin = strings.NewReader("me@example.com\nhunter22\n")
	p := &fakeAuth{}
	store := startedAuthStore(t, p)

	require.NoError(t, HandleLogin(context.Background(), te.Env, store, false))
	assert.Contains(t, te.stdout.String(), "Signed in as me@example.com")
	require.NotNil(t, store.State().Identity)
	assert.Equal(t, "me@example.com", store.State().Identity.Email)
}

func TestReadCredentials_TrimsEmailLikeTheForm(t *testing.T) {
	te := newTestEnv(t)
	te.Stdin = strings.NewReader("  me@example.com \t\n pass word \n")

	creds, err := ReadCredentials(te.Env)
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", creds.Email)
	assert.Equal(t, " pass word ", creds.Password, "passwords are sent as typed")
}

func TestHandleLogin_EmailFlagAndProviderMessage(t *testing.T) {
	te := newTestEnv(t, "--email", "me@example.com")
	te.Stdin = strings.NewReader("wrongpass\n")
	p := &fakeAuth{signInFn: func(string, string) (auth.Identity, error) {
		return auth.Identity{}, &auth.Error{Kind: auth.KindInvalidCredentials, Message: "Invalid login credentials"}
	}}
	store := startedAuthStore(t, p)

	err := HandleLogin(context.Background(), te.Env, store, false)
	require.Error(t, err)
	assert.Equal(t, "Invalid login credentials", err.Error())
	assert.Nil(t, store.State().Identity)
}

func TestHandleLogin_ValidationBeforeRemote(t *testing.T) {
	te := newTestEnv(t)
	te.Stdin = strings.NewReader("me@example.com\nshort\n")
	p := &fakeAuth{}
	store := startedAuthStore(t, p)

	err := HandleLogin(context.Background(), te.Env, store, false)
	require.Error(t, err)
	assert.Equal(t, authform.HintShortPassword, err.Error())
	assert.Zero(t, p.signIns)
}

func TestHandleLogin_InteractivePassword(t *testing.T) {
	te := newTestEnv(t)
	te.Interactive = true
	te.Stdin = strings.NewReader("me@example.com\n")
	orig := readPassword
	readPassword = func() ([]byte, error) { return []byte("hidden-pw"), nil }
	t.Cleanup(func() { readPassword = orig })

	var got string
	p := &fakeAuth{signInFn: func(email, password string) (auth.Identity, error) {
		got = password
		return auth.Identity{ID: "u", Email: email}, nil
	}}
	require.NoError(t, HandleLogin(context.Background(), te.Env, startedAuthStore(t, p), false))
	assert.Equal(t, "hidden-pw", got)
}

func TestHandleSignup(t *testing.T) {
	te := newTestEnv(t)
	te.Stdin = strings.NewReader("new@example.com\nlongenough\n")
	store := startedAuthStore(t, &fakeAuth{})

	require.NoError(t, HandleLogin(context.Background(), te.Env, store, true))
	assert.Equal(t, "u-new", store.State().Identity.ID)
}

func TestHandleWhoamiAndLogout(t *testing.T) {
	p := &fakeAuth{current: &auth.Identity{ID: "u-9", Email: "me@example.com"}}
	store := startedAuthStore(t, p)

	te := newTestEnv(t)
	te.Args.JSON = true
	require.NoError(t, HandleWhoami(context.Background(), te.Env, store))
	var resp struct {
		Data WhoamiData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(te.stdout.Bytes(), &resp))
	assert.Equal(t, WhoamiData{SignedIn: true, ID: "u-9", Email: "me@example.com"}, resp.Data)

	te = newTestEnv(t)
	require.NoError(t, HandleLogout(context.Background(), te.Env, store))
	assert.Contains(t, te.stdout.String(), "Signed out")
	assert.Nil(t, store.State().Identity)

	te = newTestEnv(t)
	require.NoError(t, HandleWhoami(context.Background(), te.Env, store))
	assert.Contains(t, te.stdout.String(), "Not signed in")
}

func TestUnconfiguredProvider(t *testing.T) {
	store := startedAuthStore(t, unconfiguredProvider{})
	_, err := store.SignIn(context.Background(), "a@b.co", "secret1")
	require.Error(t, err)
	assert.Equal(t, auth.ErrNotConfigured.Error(), auth.Message(err))
	assert.ErrorIs(t, err, auth.ErrNotConfigured)
}

// =============================================================================
// EXIT CODES
// =============================================================================

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"cancelled", ErrCancelled, ExitSuccess},
		{"validation", NewValidationError("x", "", "bad"), ExitUsageError},
		{"not ready", fmt.Errorf("wrap: %w", config.ErrNotReady), ExitConfigError},
		{"auth not configured", auth.ErrNotConfigured, ExitConfigError},
		{"bad credentials", &auth.Error{Kind: auth.KindInvalidCredentials}, ExitAuthError},
		{"remote", &auth.Error{Kind: auth.KindRemote}, ExitNetworkError},
		{"refused", errors.New("dial tcp: connection refused"), ExitNetworkError},
		{"other", errors.New("boom"), ExitGeneralError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}
