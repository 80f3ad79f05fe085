// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

package sessionlog

import (
	"time"

	"github.com/desktop-assist/desktop-assist/lib/streamjson"
)

// Record event names.
const (
	EventStart      = "start"
	EventResume     = "resume"
	EventToolCall   = "tool_call"
	EventToolResult = "tool_result"
	EventText       = "text"
	EventDone       = "done"
)

// Run statuses written on the done record.
const (
	StatusDone        = "done"
	StatusInterrupted = "interrupted"
	StatusTimeout     = "timeout"
	StatusError       = "error"
)

// Record is one line of a session log. Which fields are set depends on
// Event; unset fields are omitted from the file.
type Record struct {
	Event string `json:"event"`

	// start
	Prompt   string `json:"prompt,omitempty"`
	Model    string `json:"model,omitempty"`
	MaxTurns int    `json:"max_turns,omitempty"`

	// resume
	PreviousSession string `json:"previous_session,omitempty"`

	// tool_call and tool_result
	Step           int      `json:"step,omitempty"`
	Tool           string   `json:"tool,omitempty"`
	ToolID         string   `json:"tool_id,omitempty"`
	Command        string   `json:"command,omitempty"`
	IsError        *bool    `json:"is_error,omitempty"`
	ElapsedSeconds *float64 `json:"elapsed_s,omitempty"`
	OutputPreview  string   `json:"output_preview,omitempty"`

	// text
	Text string `json:"text,omitempty"`

	// done
	Steps         *int              `json:"steps,omitempty"`
	Status        string            `json:"status,omitempty"`
	ResultPreview string            `json:"result_preview,omitempty"`
	Usage         *streamjson.Usage `json:"usage,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// seconds converts d to seconds rounded to two decimals.
func seconds(d time.Duration) *float64 {
	value := float64(d.Round(10*time.Millisecond)) / float64(time.Second)
	return &value
}
