// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a supervised child.
type Status int

const (
	StatusNotStarted Status = iota
	StatusRunning

	// StatusFinished: stdout reached EOF or the handler saw the
	// terminal event, and the child exited.
	StatusFinished

	// StatusTimedOut: the wall-clock limit elapsed first.
	StatusTimedOut

	// StatusCancelled: the context was cancelled first.
	StatusCancelled

	// StatusCrashedLaunch: the binary could not be found or executed.
	StatusCrashedLaunch
)

func (status Status) String() string {
	switch status {
	case StatusNotStarted:
		return "not_started"
	case StatusRunning:
		return "running"
	case StatusFinished:
		return "finished"
	case StatusTimedOut:
		return "timed_out"
	case StatusCancelled:
		return "cancelled"
	case StatusCrashedLaunch:
		return "crashed_launch"
	default:
		return fmt.Sprintf("unknown(%d)", int(status))
	}
}

// Exit describes how a supervised child ended.
type Exit struct {
	Status Status

	// ExitCode is the child's exit status, or -1 when it was killed by
	// a signal or never started.
	ExitCode int

	// Stderr holds the tail of the child's stderr, at most
	// Config.StderrLimit bytes.
	Stderr string

	// StdoutBytes and Lines count what the stdout reader consumed,
	// including output drained after the handler asked to stop.
	StdoutBytes int64
	Lines       int

	// PID is the child's pid (and process group id).
	PID int

	// Duration runs from start to the end of termination.
	Duration time.Duration

	// Escalated is set when the group had to be sent SIGKILL.
	Escalated bool
}

// LaunchError reports that the child binary could not be found or
// started. It is distinct from every failure of a running child so
// callers can tell the user to install the agent CLI.
type LaunchError struct {
	Binary string
	Err    error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launching %q: %v", e.Binary, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }
