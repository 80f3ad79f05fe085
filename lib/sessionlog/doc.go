// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

// Package sessionlog persists one agent run as an append-only JSONL file
// and reads those files back.
//
// A [Writer] is bound to one run. Every Log* call serializes a single
// [Record], appends it, and fsyncs the file before returning, so a
// record whose call returned survives the process being killed
// immediately afterwards. Free-text fields are truncated to a preview
// length before they are written.
//
// The read side never mutates a log: [List] summarizes every log in a
// directory, [Replay] returns all records of one log, and
// [BuildResumePrompt] folds a prior log into continuation instructions
// for a new run. [Archive] compresses finished logs; the readers open
// archived logs transparently.
//
// Files are named <session-id>.jsonl under the sessions directory.
// Session ids are time-sortable with a random suffix, so concurrent
// runs never share a file and no cross-run locking is needed.
package sessionlog
