// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// ErrorCategory classifies command failures so scripts can tell bad
// input from a missing session from a wrapper bug without parsing text.
type ErrorCategory string

const (
	// CategoryValidation: bad flags, arguments, or configuration.
	CategoryValidation ErrorCategory = "validation"

	// CategoryNotFound: a named session or tool does not exist.
	CategoryNotFound ErrorCategory = "not_found"

	// CategoryConflict: the request conflicts with existing state, such
	// as archiving a session that is still being written.
	CategoryConflict ErrorCategory = "conflict"

	// CategoryInternal: an unexpected failure (I/O, corrupt data).
	CategoryInternal ErrorCategory = "internal"
)

// ToolError is a categorized error. Build one with the constructors
// below rather than directly.
type ToolError struct {
	Category ErrorCategory
	Err      error
}

func (e *ToolError) Error() string { return e.Err.Error() }

func (e *ToolError) Unwrap() error { return e.Err }

// Validation reports bad input.
func Validation(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryValidation, Err: fmt.Errorf(format, args...)}
}

// NotFound reports a missing resource.
func NotFound(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryNotFound, Err: fmt.Errorf(format, args...)}
}

// Conflict reports a request that clashes with existing state.
func Conflict(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryConflict, Err: fmt.Errorf(format, args...)}
}

// Internal reports an unexpected failure.
func Internal(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryInternal, Err: fmt.Errorf(format, args...)}
}
