// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

// Package agentrunner runs one desktop automation task through the
// agent CLI and reduces the run to a single [Outcome].
//
// [Run] builds the system instructions (tool catalog, custom
// instructions, and an optional resume transcript) and the command
// line, opens a session log, and hands the child to lib/supervisor.
// Each stdout line is decoded with lib/streamjson on the supervisor's
// reader goroutine; decoded events are appended to the session log and
// reported to an [Observer] in arrival order. The terminal result event
// stops decoding.
//
// Every run ends with exactly one done record in its session log, also
// when the run timed out, was cancelled, or could not be launched.
// Session log write failures never abort the run: the first one is
// reported as [Outcome.LogError] once the run has finished.
//
// Outcome texts carry a fixed prefix ("[error] ", "[timeout] ",
// "[dry-run] ") that callers may match on.
package agentrunner
