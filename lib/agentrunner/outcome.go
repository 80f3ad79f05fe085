// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

package agentrunner

import (
	"time"

	"github.com/desktop-assist/desktop-assist/lib/process"
	"github.com/desktop-assist/desktop-assist/lib/sessionlog"
	"github.com/desktop-assist/desktop-assist/lib/streamjson"
	"github.com/desktop-assist/desktop-assist/lib/supervisor"
)

// Outcome prefixes. Callers match on these rather than on Kind when
// all they have is the text.
const (
	PrefixError   = streamjson.ErrorMarker + " "
	PrefixTimeout = "[timeout] "
	PrefixDryRun  = "[dry-run] "
)

// Kind classifies how a run ended.
type Kind string

const (
	// KindResult: the agent emitted its terminal result message. The
	// result itself may be an error (Outcome.IsError).
	KindResult Kind = "result"

	// KindEmpty: the agent exited without a result and without writing
	// anything to stdout.
	KindEmpty Kind = "empty"

	// KindUnexpectedExit: the agent wrote output but exited without a
	// result.
	KindUnexpectedExit Kind = "unexpected_exit"

	// KindTimedOut: the run exceeded its wall-clock budget.
	KindTimedOut Kind = "timed_out"

	// KindCancelled: the run's context was cancelled (user interrupt).
	KindCancelled Kind = "cancelled"

	// KindLaunchFailed: the agent binary could not be started.
	KindLaunchFailed Kind = "launch_failed"

	// KindDryRun: no process was started; Text holds the command.
	KindDryRun Kind = "dry_run"

	// KindInternal: the wrapper itself failed (pipe creation, a
	// panicking observer).
	KindInternal Kind = "internal"
)

// Outcome is the single terminal result of a run.
type Outcome struct {
	Kind Kind

	// Text is the agent's final answer, or a prefixed failure message.
	Text string

	// IsError is set for every outcome except a successful result and
	// a dry run.
	IsError bool

	// Usage is the metrics reported on the result message, if any.
	Usage streamjson.Usage

	// Steps is the number of tool calls the agent made.
	Steps int

	// Elapsed runs from just before launch to the end of termination.
	Elapsed time.Duration

	// SessionID names the run. It is set even when logging is
	// disabled; SessionPath is empty in that case.
	SessionID   string
	SessionPath string

	// Exit describes how the agent process ended. Zero for dry runs.
	Exit supervisor.Exit

	// LogError is the first session log failure. The run continued
	// without (or with a partial) audit trail.
	LogError error
}

// Status returns the session log done-record status for the outcome.
func (outcome Outcome) Status() string {
	switch outcome.Kind {
	case KindResult:
		if outcome.IsError {
			return sessionlog.StatusError
		}
		return sessionlog.StatusDone
	case KindTimedOut:
		return sessionlog.StatusTimeout
	case KindCancelled:
		return sessionlog.StatusInterrupted
	case KindDryRun:
		return sessionlog.StatusDone
	default:
		return sessionlog.StatusError
	}
}

// ExitCode maps the outcome to a process exit code.
func (outcome Outcome) ExitCode() int {
	switch outcome.Kind {
	case KindDryRun:
		return process.ExitSuccess
	case KindResult:
		if outcome.IsError {
			return process.ExitFailure
		}
		return process.ExitSuccess
	case KindLaunchFailed:
		return process.ExitUsage
	case KindTimedOut:
		return process.ExitTimeout
	case KindCancelled:
		return process.ExitInterrupted
	default:
		return process.ExitFailure
	}
}
