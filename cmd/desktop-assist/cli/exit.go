// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"

	"github.com/desktop-assist/desktop-assist/lib/process"
)

// ExitError requests a specific exit status without printing anything
// further. The command has already written its own output (a failed
// run prints the agent's error text, for example).
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCode returns the requested status.
func (e *ExitError) ExitCode() int {
	return e.Code
}

// ExitCode maps an error returned by [Command.Execute] to a process
// exit status and reports whether the error still needs printing.
func ExitCode(err error) (code int, report bool) {
	if err == nil {
		return process.ExitSuccess, false
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, false
	}
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		switch toolErr.Category {
		case CategoryValidation, CategoryNotFound:
			return process.ExitUsage, true
		}
	}
	return process.ExitFailure, true
}
