// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// daemon_cmd.go - start, stop, restart, status, daemon and the log commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/anubhavitis/peeksy/internal/config"
	"github.com/anubhavitis/peeksy/internal/daemon"
	"github.com/anubhavitis/peeksy/internal/launchd"
	"github.com/anubhavitis/peeksy/internal/logging"
)

const restartNote = "Note: if you change the screenshot directory, run `peeksy restart` to pick it up."

// =============================================================================
// SERVICE MANAGERS
// =============================================================================

// ServiceManager starts and stops the background watcher.
type ServiceManager interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Status(ctx context.Context) (daemon.Status, error)
}

// launchdManager runs the watcher as a macOS launch agent.
type launchdManager struct {
	agent *launchd.Agent
}

func (m launchdManager) Name() string { return "launchd" }

func (m launchdManager) Start(ctx context.Context) error { return m.agent.Load(ctx) }

func (m launchdManager) Stop(ctx context.Context) error { return m.agent.Unload(ctx) }

func (m launchdManager) Status(ctx context.Context) (daemon.Status, error) {
	pid, err := m.agent.Status(ctx)
	if errors.Is(err, launchd.ErrNotLoaded) {
		return daemon.Status{}, nil
	}
	if err != nil {
		return daemon.Status{}, err
	}
	return daemon.Status{Running: pid > 0, PID: pid}, nil
}

// processManager runs the watcher as a detached child and tracks it through
// the pid file.
type processManager struct {
	binary  string
	pidPath string
	logDir  string
	spawn   func(binary, logDir string) (int, error)
	wait    time.Duration
}

func (m processManager) Name() string { return "process" }

func (m processManager) Start(ctx context.Context) error {
	if st := daemon.GetStatus(m.pidPath); st.Running {
		return nil
	}
	if _, err := m.spawn(m.binary, m.logDir); err != nil {
		return err
	}
	return nil
}

func (m processManager) Stop(ctx context.Context) error {
	err := daemon.Stop(m.pidPath)
	if errors.Is(err, daemon.ErrNotRunning) {
		return nil
	}
	if err != nil {
		return err
	}
	return m.waitStopped(ctx)
}

func (m processManager) waitStopped(ctx context.Context) error {
	deadline := time.Now().Add(m.wait)
	for daemon.GetStatus(m.pidPath).Running {
		if time.Now().After(deadline) {
			return fmt.Errorf("daemon did not exit within %s", m.wait)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
	return nil
}

func (m processManager) Status(ctx context.Context) (daemon.Status, error) {
	return daemon.GetStatus(m.pidPath), nil
}

func launchdManagerFor(env *Env, home string) launchdManager {
	return launchdManager{agent: launchd.New(home, env.Executable,
		launchd.WithRunner(env.Run),
		launchd.WithLogger(env.logger()),
	)}
}

// NewServiceManager picks launchd on macOS and a detached process elsewhere.
func NewServiceManager(env *Env) (ServiceManager, error) {
	if runtime.GOOS == "darwin" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine home directory: %w", err)
		}
		return launchdManagerFor(env, home), nil
	}

	pidPath, err := config.PIDPath()
	if err != nil {
		return nil, err
	}
	logDir, err := env.Config.LogDir()
	if err != nil {
		return nil, err
	}
	return processManager{
		binary:  env.Executable,
		pidPath: pidPath,
		logDir:  logDir,
		spawn:   daemon.Spawn,
		wait:    5 * time.Second,
	}, nil
}

// =============================================================================
// HANDLERS
// =============================================================================

// HandleStart starts the watcher unless it is already running.
func HandleStart(ctx context.Context, env *Env, m ServiceManager) error {
	if err := env.Config.Ready(); err != nil {
		return fmt.Errorf("%w; run 'peeksy edit-config' first", err)
	}
	st, err := m.Status(ctx)
	if err != nil {
		return err
	}
	if st.Running {
		fmt.Fprintf(env.Stdout, "Peeksy daemon is already running (pid %d)\n", st.PID)
		return nil
	}
	if err := m.Start(ctx); err != nil {
		return err
	}
	env.logger().Info("daemon started", "manager", m.Name())
	fmt.Fprintln(env.Stdout, SuccessStyle.Render("Peeksy daemon started successfully"))
	return nil
}

// HandleStop stops the watcher. Stopping a stopped watcher succeeds.
func HandleStop(ctx context.Context, env *Env, m ServiceManager) error {
	if err := m.Stop(ctx); err != nil {
		return err
	}
	env.logger().Info("daemon stopped", "manager", m.Name())
	fmt.Fprintln(env.Stdout, SuccessStyle.Render("Peeksy daemon stopped successfully"))
	return nil
}

// HandleRestart stops then starts the watcher.
func HandleRestart(ctx context.Context, env *Env, m ServiceManager) error {
	if err := env.Config.Ready(); err != nil {
		return fmt.Errorf("%w; run 'peeksy edit-config' first", err)
	}
	if err := m.Stop(ctx); err != nil {
		return err
	}
	if err := m.Start(ctx); err != nil {
		return err
	}
	env.logger().Info("daemon restarted", "manager", m.Name())
	fmt.Fprintln(env.Stdout, SuccessStyle.Render("Peeksy daemon restarted successfully"))
	return nil
}

// HandleStatus reports whether the watcher is running.
func HandleStatus(ctx context.Context, env *Env, m ServiceManager) error {
	st, err := m.Status(ctx)
	if err != nil {
		return err
	}
	data := statusData(st, m.Name())
	if dir, err := env.ScreenshotDir(ctx); err == nil {
		data.ScreenshotDir = dir
	}
	if err := env.Config.Ready(); err != nil {
		data.Problem = err.Error()
	} else {
		data.Configured = true
	}

	if env.Args.JSON {
		return NewJSONResponse("status", data).Write(env.Stdout)
	}

	fmt.Fprintln(env.Stdout, TitleStyle.Render("peeksy status"))
	fmt.Fprintln(env.Stdout, RenderField("Daemon", RenderStatus(st.Running)))
	if st.Running && st.PID > 0 {
		fmt.Fprintln(env.Stdout, RenderField("PID", fmt.Sprint(st.PID)))
	}
	fmt.Fprintln(env.Stdout, RenderField("Manager", m.Name()))
	fmt.Fprintln(env.Stdout, RenderField("Screenshot folder", data.ScreenshotDir))
	if data.Problem != "" {
		fmt.Fprintln(env.Stdout, RenderField("Config", WarningStyle.Render(data.Problem)))
	} else {
		fmt.Fprintln(env.Stdout, RenderField("Config", SuccessStyle.Render("ready")))
	}
	if st.Running {
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, DimStyle.Render(restartNote))
	}
	return nil
}

// HandleDaemon runs the watcher in the foreground until interrupted.
func HandleDaemon(ctx context.Context, env *Env) error {
	pidPath, err := config.PIDPath()
	if err != nil {
		return err
	}
	if st := daemon.GetStatus(pidPath); st.Running {
		fmt.Fprintf(env.Stdout, "Peeksy daemon is already running with PID %d\n", st.PID)
		return nil
	}

	r, cleanup, err := env.Renamer()
	if err != nil {
		return err
	}
	defer cleanup()

	dir, err := env.ScreenshotDir(ctx)
	if err != nil {
		return err
	}
	d := daemon.New(env.Config, dir, r,
		daemon.WithLogger(env.logger()),
		daemon.WithPIDFile(pidPath),
	)
	return d.Run(ctx)
}

// =============================================================================
// LOGS
// =============================================================================

// HandleLogs prints a log file. --path prints only its location and
// --lines N prints the last N lines.
func HandleLogs(env *Env, name string) error {
	dir, err := env.Config.LogDir()
	if err != nil {
		return err
	}
	path := logging.Path(dir, name)

	p := NewArgParser(env.Args.Raw, "path")
	if p.BoolFlag("path") {
		fmt.Fprintln(env.Stdout, path)
		return nil
	}
	lines, err := p.FlagIntOrDefault(0, "lines", "n")
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(env.Stdout, "No log yet at %s\n", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	fmt.Fprintln(env.Stdout, DimStyle.Render(path))
	fmt.Fprintf(env.Stdout, "---------\n%s", tailLines(string(data), lines))
	return nil
}

// tailLines returns the last n lines of s, or all of s when n <= 0.
func tailLines(s string, n int) string {
	if n <= 0 {
		return s
	}
	trimmed := strings.TrimRight(s, "\n")
	parts := strings.Split(trimmed, "\n")
	if len(parts) <= n {
		return s
	}
	return strings.Join(parts[len(parts)-n:], "\n") + "\n"
}
