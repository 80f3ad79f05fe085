// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

package agentrunner

import "github.com/desktop-assist/desktop-assist/lib/streamjson"

// Observer receives a run's progress. Event is called from the stdout
// reader goroutine in the order the agent wrote its output; Started
// and Finished are called from the goroutine that called Run.
// Implementations must not block for long: a slow observer stalls the
// reader and, eventually, the agent.
type Observer interface {
	// Started is called once the session log (if any) is open and
	// before the agent is launched.
	Started(sessionID, sessionPath string)

	// Event is called for every decoded event.
	Event(event streamjson.Event)

	// Finished is called exactly once with the run's outcome, after
	// the done record has been written.
	Finished(outcome Outcome)
}

type nopObserver struct{}

func (nopObserver) Started(string, string) {}
func (nopObserver) Event(streamjson.Event) {}
func (nopObserver) Finished(Outcome) {}
