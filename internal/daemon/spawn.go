// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// Spawn starts `binary daemon` detached from the terminal, with output
// appended to daemon.out in logDir. It returns the child's pid.
func Spawn(binary, logDir string) (int, error) {
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return 0, err
	}
	out, err := os.OpenFile(filepath.Join(logDir, "daemon.out"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	cmd := exec.Command(binary, "daemon")
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.SysProcAttr = detachAttr()
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start daemon: %w", err)
	}
	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		return pid, err
	}
	return pid, nil
}
