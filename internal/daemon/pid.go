// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package daemon

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/anubhavitis/peeksy/internal/util"
)

// =============================================================================
// PID FILE
// =============================================================================

var (
	// ErrAlreadyRunning is returned by WritePID when a live daemon owns the file.
	ErrAlreadyRunning = errors.New("peeksy daemon is already running")

	// ErrNotRunning is returned by Stop when no daemon is alive.
	ErrNotRunning = errors.New("peeksy daemon is not running")
)

// Status describes the daemon process.
type Status struct {
	Running bool
	PID     int
}

func (s Status) String() string {
	if !s.Running {
		return "stopped"
	}
	return fmt.Sprintf("running (pid %d)", s.PID)
}

// WritePID records the current pid, refusing when another live daemon
// already holds the file.
func WritePID(path string) error {
	if pid, err := ReadPID(path); err == nil && pid != os.Getpid() && processAlive(pid) {
		return fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, pid)
	}
	return util.AtomicWriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0600)
}

// ReadPID reads the pid stored at path.
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid file %s", path)
	}
	return pid, nil
}

// RemovePID deletes the pid file if it still names this process.
func RemovePID(path string) {
	if pid, err := ReadPID(path); err == nil && pid == os.Getpid() {
		os.Remove(path)
	}
}

// GetStatus reports whether the daemon recorded at path is alive.
func GetStatus(path string) Status {
	pid, err := ReadPID(path)
	if err != nil || !processAlive(pid) {
		return Status{}
	}
	return Status{Running: true, PID: pid}
}

// Stop asks the daemon recorded at path to exit and removes a stale file.
func Stop(path string) error {
	st := GetStatus(path)
	if !st.Running {
		os.Remove(path)
		return ErrNotRunning
	}
	if err := terminate(st.PID); err != nil {
		return fmt.Errorf("stop pid %d: %w", st.PID, err)
	}
	return nil
}
