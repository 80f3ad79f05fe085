// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

// Package watchdog records in-flight agent runs as small atomic marker
// files, so a later invocation can find and terminate children left
// behind when a supervisor crashed.
//
// The intended workflow:
//
//  1. After the child starts: call [Write] with the supervisor's pid and
//     the child's pid and process group.
//  2. When the run ends, however it ends: call [Clear].
//  3. On the next startup: [Scan] the markers directory. A marker whose
//     supervisor pid is gone describes an orphan; its process group is
//     terminated and the marker cleared.
//
// Marker files are written atomically (write to temporary file, fsync,
// rename into place, fsync parent directory) so readers never see a
// partial marker. [Check] ignores markers older than a maximum age so a
// recycled pid from a long-gone run is never signalled.
package watchdog
