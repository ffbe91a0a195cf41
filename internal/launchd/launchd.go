// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package launchd manages the macOS launch agent that keeps the peeksy
// daemon running.
package launchd

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"github.com/anubhavitis/peeksy/internal/logging"
	"github.com/anubhavitis/peeksy/internal/util"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// Label identifies the agent to launchctl.
	Label = "com.anubhavitis.peeksy"

	// DefaultStdoutPath and DefaultStderrPath capture daemon output.
	DefaultStdoutPath = "/tmp/peeksy.out"
	DefaultStderrPath = "/tmp/peeksy.err"
)

var plistTemplate = template.Must(template.New("plist").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label | html}}</string>
    <key>ProgramArguments</key>
    <array>
        <string>{{.Binary | html}}</string>
        <string>daemon</string>
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <false/>
    <key>StandardOutPath</key>
    <string>{{.StdoutPath | html}}</string>
    <key>StandardErrorPath</key>
    <string>{{.StderrPath | html}}</string>
</dict>
</plist>
`))

// ErrNotLoaded is returned by Status when launchctl does not list the agent.
var ErrNotLoaded = errors.New("launch agent is not loaded")

// =============================================================================
// AGENT
// =============================================================================

// Agent is the peeksy launch agent.
type Agent struct {
	Label      string
	PlistPath  string
	Binary     string
	StdoutPath string
	StderrPath string

	run    util.Runner
	write  func(path string, data []byte) error
	logger *slog.Logger
}

// Option configures an Agent.
type Option func(*Agent)

// WithRunner replaces the launchctl runner.
func WithRunner(r util.Runner) Option { return func(a *Agent) { a.run = r } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Agent) {
		if l != nil {
			a.logger = l
		}
	}
}

// New describes the agent for the user whose home is home, running binary.
func New(home, binary string, opts ...Option) *Agent {
	a := &Agent{
		Label:      Label,
		PlistPath:  filepath.Join(home, "Library", "LaunchAgents", Label+".plist"),
		Binary:     binary,
		StdoutPath: DefaultStdoutPath,
		StderrPath: DefaultStderrPath,
		run:        util.ExecRunner,
		logger:     logging.Discard(),
		write: func(path string, data []byte) error {
			return util.AtomicWriteFileWithDir(path, data, 0644, 0755)
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Plist renders the agent's property list.
func (a *Agent) Plist() ([]byte, error) {
	var buf bytes.Buffer
	if err := plistTemplate.Execute(&buf, a); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Install writes the plist to PlistPath.
func (a *Agent) Install() error {
	data, err := a.Plist()
	if err != nil {
		return err
	}
	if err := a.write(a.PlistPath, data); err != nil {
		return fmt.Errorf("write %s: %w", a.PlistPath, err)
	}
	return nil
}

// Status returns the agent's pid as listed by launchctl (0 when loaded but
// not running), or ErrNotLoaded.
func (a *Agent) Status(ctx context.Context) (int, error) {
	out, err := a.run(ctx, "launchctl", "list")
	if err != nil {
		return 0, fmt.Errorf("launchctl list: %w", err)
	}
	pid, ok := ParseList(out, a.Label)
	if !ok {
		return 0, ErrNotLoaded
	}
	return pid, nil
}

// IsLoaded reports whether launchctl knows the agent.
func (a *Agent) IsLoaded(ctx context.Context) bool {
	_, err := a.Status(ctx)
	return err == nil
}

// IsRunning reports whether the agent has a live process.
func (a *Agent) IsRunning(ctx context.Context) bool {
	pid, err := a.Status(ctx)
	return err == nil && pid > 0
}

// Load installs and loads the agent. A loaded agent without a process is
// reloaded.
func (a *Agent) Load(ctx context.Context) error {
	pid, err := a.Status(ctx)
	switch {
	case err == nil && pid > 0:
		a.logger.Info("launch agent already running", "pid", pid)
		return nil
	case err == nil:
		a.logger.Info("launch agent loaded but not running, reloading")
		if err := a.launchctl(ctx, "unload"); err != nil {
			return err
		}
	case !errors.Is(err, ErrNotLoaded):
		return err
	}

	if err := a.Install(); err != nil {
		return err
	}
	return a.launchctl(ctx, "load")
}

// Unload stops the agent. Unloading an agent that is not loaded is a no-op.
func (a *Agent) Unload(ctx context.Context) error {
	if !a.IsLoaded(ctx) {
		a.logger.Info("launch agent is not loaded")
		return nil
	}
	return a.launchctl(ctx, "unload")
}

func (a *Agent) launchctl(ctx context.Context, verb string) error {
	a.logger.Info("launchctl "+verb, "plist", a.PlistPath)
	if _, err := a.run(ctx, "launchctl", verb, a.PlistPath); err != nil {
		return fmt.Errorf("launchctl %s: %w", verb, err)
	}
	return nil
}

// ParseList finds label in `launchctl list` output ("PID Status Label"
// rows, PID "-" when not running).
func ParseList(out []byte, label string) (pid int, loaded bool) {
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 3 || fields[len(fields)-1] != label {
			continue
		}
		pid, _ = strconv.Atoi(fields[0])
		return pid, true
	}
	return 0, false
}
