// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

// Package supervisor owns the lifecycle of one agent child process and
// guarantees the child, and everything it spawned, is gone when [Run]
// returns.
//
// The child is started as the leader of its own process group so
// termination reaches grandchildren (a shell pipeline started by a tool
// call) as well as the child itself. Two reader goroutines run for the
// life of the child: one splits stdout into lines and hands each to the
// caller's [LineHandler], the other drains stderr into a bounded buffer
// so a chatty child can never block on a full pipe. Stderr is never
// interpreted; it is only surfaced in [Exit] for error reporting.
//
// The coordinating goroutine waits for the first of: stdout finished
// (EOF, or the handler reporting the terminal event), the timeout, or
// context cancellation. Timeout and cancellation trigger escalating
// termination: SIGTERM to the group, a grace period, SIGKILL to the
// group, and a bounded wait for the reap. Signalling a group that has
// already exited counts as success, so racing paths never turn a
// finished run into an error.
//
// The handler is only ever called from the stdout reader goroutine, and
// Run does not return until that goroutine has exited, so state the
// handler touches needs no locking and is never touched after Run
// returns.
//
// While the child runs, a [watchdog] marker records its process group.
// [ReapOrphans] uses those markers to terminate children whose
// supervisor died without cleaning up.
package supervisor
