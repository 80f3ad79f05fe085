// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

//go:build unix

package supervisor

import (
	"errors"
	"fmt"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// Termination signals.
var (
	signalTerminate = unix.SIGTERM
	signalKill      = unix.SIGKILL
)

// setProcessGroup makes the child the leader of a new process group
// whose id equals its pid.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// KillGroup sends sig to every process in group pgid. A group that no
// longer exists (ESRCH) or whose members now belong to someone else
// (EPERM, after pid reuse) counts as already terminated and returns
// nil, so terminating twice is always safe.
func KillGroup(pgid int, sig syscall.Signal) error {
	if pgid <= 1 {
		return fmt.Errorf("refusing to signal process group %d", pgid)
	}
	err := unix.Kill(-pgid, sig)
	if err == nil || errors.Is(err, unix.ESRCH) || errors.Is(err, unix.EPERM) {
		return nil
	}
	return fmt.Errorf("signalling process group %d with %v: %w", pgid, sig, err)
}

// GroupAlive reports whether any process in group pgid exists.
func GroupAlive(pgid int) bool {
	if pgid <= 1 {
		return false
	}
	return probe(-pgid)
}

// ProcessAlive reports whether pid exists.
func ProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return probe(pid)
}

// probe sends signal 0: nil means the target exists and is ours, EPERM
// means it exists and belongs to another user.
func probe(target int) bool {
	err := unix.Kill(target, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
