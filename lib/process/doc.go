// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers for the
// desktop-assist binaries: the process exit codes shared by every
// command, and fatal error reporting for failures that happen before
// the structured logger exists.
//
// Library packages never write to stdout or stderr directly. This
// package and cmd/ are the only places raw output is allowed.
package process
