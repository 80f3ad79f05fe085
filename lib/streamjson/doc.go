// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

// Package streamjson decodes the agent CLI's stream-json protocol: one
// JSON object per stdout line, with a top-level "type" of "assistant",
// "user", or "result".
//
// A [Decoder] owns the incremental state of one run: the step counter
// and the pending tool-call timers. It performs no I/O; the caller
// splits stdout into lines and hands each to [Decoder.Decode], which
// returns zero or more typed [Event] values in arrival order.
//
// Lines that are not valid protocol JSON decode to an [Unparseable]
// event instead of an error, because the agent may interleave log noise
// with protocol lines. Unknown message types are ignored.
//
// The package also holds the small display helpers shared by the
// session log and the CLI: [Truncate], [SummarizeCommand], and
// [FormatTokenCount].
package streamjson
