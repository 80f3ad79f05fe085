// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

package streamjson

import (
	"encoding/json"
	"time"
)

// ErrorMarker prefixes final text that reports a failure. Downstream
// callers match on it, so it is part of the output contract.
const ErrorMarker = "[error]"

// Kind classifies a decoded event.
type Kind string

const (
	// KindToolCall is a tool invocation requested by the agent.
	KindToolCall Kind = "tool_call"

	// KindToolResult is the outcome of an earlier tool invocation.
	KindToolResult Kind = "tool_result"

	// KindText is free text written by the agent.
	KindText Kind = "text"

	// KindResult is the terminal message of a run.
	KindResult Kind = "result"

	// KindUnparseable is a stdout line that is not protocol JSON.
	KindUnparseable Kind = "unparseable"
)

// Event is one decoded protocol message. Exactly one of the pointer
// fields is set, selected by Kind. Events are not modified after
// Decode returns them.
type Event struct {
	Kind Kind

	ToolCall    *ToolCall
	ToolResult  *ToolResult
	Text        *AssistantText
	Result      *Result
	Unparseable *Unparseable
}

// ToolCall records a tool_use block.
type ToolCall struct {
	// Step is the 1-based position of this call within the run.
	Step int

	// Name is the tool name (e.g. "Bash", "Read").
	Name string

	// ID is the tool_use identifier echoed by the matching result.
	ID string

	// Summary is a one-line human-readable description of the call.
	Summary string

	// Detail is the untruncated command or file path, empty when the
	// input carried neither.
	Detail string

	// Input is the raw tool input.
	Input json.RawMessage
}

// ToolResult records a tool_result block.
type ToolResult struct {
	// ID matches ToolCall.ID.
	ID string

	// Step is the step of the matching call, or 0 if no call with this
	// ID was pending.
	Step int

	IsError bool

	// Output is the full result text.
	Output string

	// Preview is Output truncated to the decoder's preview length.
	Preview string

	// Elapsed is the time between the call and this result. Only
	// meaningful when Timed is true.
	Elapsed time.Duration
	Timed   bool
}

// AssistantText records a text block written by the agent.
type AssistantText struct {
	Text string
}

// Result is the terminal message of a run.
type Result struct {
	// Text is the final answer. When IsError is set it starts with
	// ErrorMarker followed by the agent's message verbatim.
	Text string

	IsError bool

	Usage Usage
}

// Usage holds the metrics reported on the result message. Nil pointers
// and empty strings mean "not reported", never zero.
type Usage struct {
	CostUSD      *float64 `json:"cost_usd,omitempty"`
	InputTokens  *int64   `json:"input_tokens,omitempty"`
	OutputTokens *int64   `json:"output_tokens,omitempty"`
	NumTurns     *int64   `json:"num_turns,omitempty"`
	SessionID    string   `json:"session_id,omitempty"`
}

// Empty reports whether no usage field was reported.
func (usage Usage) Empty() bool {
	return usage.CostUSD == nil && usage.InputTokens == nil &&
		usage.OutputTokens == nil && usage.NumTurns == nil && usage.SessionID == ""
}

// Unparseable preserves a line that could not be decoded.
type Unparseable struct {
	Raw string
}
