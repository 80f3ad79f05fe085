// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"fmt"
	"os"
)

// Exit codes. Callers distinguish "ran and failed" from "could not run"
// from "interrupted" without parsing output.
const (
	ExitSuccess = 0

	// ExitFailure: the agent ran and reported an error, exited
	// unexpectedly, or produced no output.
	ExitFailure = 1

	// ExitUsage: the agent could not be run at all (binary missing,
	// bad flags, invalid configuration).
	ExitUsage = 2

	// ExitTimeout matches timeout(1).
	ExitTimeout = 124

	// ExitInterrupted is the shell convention for SIGINT (128+2).
	ExitInterrupted = 130
)

// Fatal writes "error: err" to stderr and exits with ExitFailure. Use
// it in main() for errors from run() where the structured logger may
// not be initialized.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(ExitFailure)
}
