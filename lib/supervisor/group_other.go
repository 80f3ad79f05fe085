// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !unix

package supervisor

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// Without process groups only the child itself can be signalled, and
// only with a hard kill.
var (
	signalTerminate = syscall.SIGKILL
	signalKill      = syscall.SIGKILL
)

func setProcessGroup(*exec.Cmd) {}

// KillGroup kills the process pgid. Grandchildren are not reached on
// this platform.
func KillGroup(pgid int, _ syscall.Signal) error {
	process, err := os.FindProcess(pgid)
	if err != nil {
		return nil
	}
	if err := process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

// GroupAlive is not observable on this platform and reports false.
func GroupAlive(int) bool { return false }

// ProcessAlive is not observable on this platform and reports false.
func ProcessAlive(int) bool { return false }
