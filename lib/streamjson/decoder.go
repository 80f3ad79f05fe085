// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

package streamjson

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/desktop-assist/desktop-assist/lib/clock"
)

// Options configures a Decoder. Zero values select the defaults.
type Options struct {
	// Clock times tool calls. Defaults to clock.Real().
	Clock clock.Clock

	// SummaryLength bounds ToolCall.Summary. Default 120.
	SummaryLength int

	// PreviewLength bounds ToolResult.Preview. Default 200.
	PreviewLength int

	// Interpreters are additional python executable paths whose -c
	// snippets SummarizeCommand should strip.
	Interpreters []string
}

// Decoder holds the per-run decoding state. A Decoder is owned by one
// goroutine (the stdout reader) and is not safe for concurrent use.
type Decoder struct {
	options Options
	steps   int
	pending map[string]pendingCall
}

// pendingCall is the timer started by a tool_use and consumed by the
// matching tool_result.
type pendingCall struct {
	started time.Time
	step    int
}

// NewDecoder returns a Decoder with no steps taken and no pending calls.
func NewDecoder(options Options) *Decoder {
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.SummaryLength <= 0 {
		options.SummaryLength = DefaultSummaryLength
	}
	if options.PreviewLength <= 0 {
		options.PreviewLength = DefaultPreviewLength
	}
	return &Decoder{
		options: options,
		pending: make(map[string]pendingCall),
	}
}

// Steps returns the number of tool calls decoded so far.
func (decoder *Decoder) Steps() int { return decoder.steps }

// Pending returns the number of tool calls still waiting for a result.
func (decoder *Decoder) Pending() int { return len(decoder.pending) }

// Decode interprets one stdout line. A blank line yields no events; a
// line that is not a JSON object yields a single KindUnparseable event.
// Unparseable lines do not advance the step counter: steps count tool
// calls the agent made, and noise on stdout is not one.
//
// The envelope type is read first and the payload field by field, so a
// field of an unexpected type is dropped without losing the message.
// An assistant message may carry several blocks and so yield several
// events, in block order.
func (decoder *Decoder) Decode(line string) []Event {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil
	}

	message, ok := parseFields([]byte(trimmed))
	if !ok {
		return []Event{{Kind: KindUnparseable, Unparseable: &Unparseable{Raw: trimmed}}}
	}

	kind, _ := message.str("type")
	switch kind {
	case "result":
		return []Event{decoder.decodeResult(message)}
	case "assistant":
		return decoder.decodeAssistant(message.object("message").blocks("content"))
	case "user":
		return decoder.decodeUser(message.object("message").blocks("content"))
	default:
		return nil
	}
}

func (decoder *Decoder) decodeResult(message fields) Event {
	subtype, _ := message.str("subtype")
	text, hasText := message.text("result")
	result := &Result{
		IsError: message.flag("is_error") || strings.HasPrefix(subtype, "error"),
	}
	if result.IsError {
		if !hasText {
			text = "Unknown error"
		}
		result.Text = ErrorMarker + " " + text
	} else {
		result.Text = text
	}

	usage := Usage{
		CostUSD:      message.float("cost_usd"),
		InputTokens:  message.integer("input_tokens"),
		OutputTokens: message.integer("output_tokens"),
		NumTurns:     message.integer("num_turns"),
	}
	usage.SessionID, _ = message.str("session_id")
	if usage.CostUSD == nil {
		usage.CostUSD = message.float("total_cost_usd")
	}
	if nested := message.object("usage"); nested != nil {
		if usage.InputTokens == nil {
			usage.InputTokens = nested.integer("input_tokens")
		}
		if usage.OutputTokens == nil {
			usage.OutputTokens = nested.integer("output_tokens")
		}
	}
	result.Usage = usage

	return Event{Kind: KindResult, Result: result}
}

func (decoder *Decoder) decodeAssistant(blocks []fields) []Event {
	var events []Event
	for _, block := range blocks {
		kind, _ := block.str("type")
		switch kind {
		case "tool_use":
			events = append(events, decoder.startToolCall(block))
		case "text":
			text, _ := block.str("text")
			text = strings.TrimSpace(text)
			if text == "" {
				continue
			}
			events = append(events, Event{Kind: KindText, Text: &AssistantText{Text: text}})
		}
	}
	return events
}

func (decoder *Decoder) startToolCall(block fields) Event {
	decoder.steps++
	step := decoder.steps

	name, _ := block.str("name")
	if name == "" {
		name = "?"
	}
	id, _ := block.str("id")
	raw := block.present("input")

	var command, filePath string
	if input, ok := parseFields(raw); ok && input != nil {
		command, _ = input.str("command")
		filePath, _ = input.str("file_path")
	}

	call := &ToolCall{
		Step:  step,
		Name:  name,
		ID:    id,
		Input: raw,
	}
	switch {
	case command != "":
		call.Detail = command
		call.Summary = SummarizeCommand(command, decoder.options.SummaryLength, decoder.options.Interpreters...)
	case filePath != "":
		call.Detail = filePath
		call.Summary = filePath
	default:
		call.Summary = Truncate(compactJSON(raw), decoder.options.SummaryLength)
	}

	// A repeated ID restarts its timer; the map never holds two entries
	// for one ID.
	decoder.pending[id] = pendingCall{
		started: decoder.options.Clock.Now(),
		step:    step,
	}

	return Event{Kind: KindToolCall, ToolCall: call}
}

func (decoder *Decoder) decodeUser(blocks []fields) []Event {
	var events []Event
	for _, block := range blocks {
		if kind, _ := block.str("type"); kind != "tool_result" {
			continue
		}
		id, _ := block.str("tool_use_id")
		output := contentText(block.present("content"))
		result := &ToolResult{
			ID:      id,
			IsError: block.flag("is_error"),
			Output:  output,
			Preview: Truncate(output, decoder.options.PreviewLength),
		}
		if call, ok := decoder.pending[id]; ok {
			delete(decoder.pending, id)
			result.Step = call.step
			result.Elapsed = max(clock.Since(decoder.options.Clock, call.started), 0)
			result.Timed = true
		}
		events = append(events, Event{Kind: KindToolResult, ToolResult: result})
	}
	return events
}

// contentText extracts displayable text from a tool_result content
// field, which is either a string or an array of content blocks.
func contentText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}

	var text string
	if json.Unmarshal(raw, &text) == nil {
		return text
	}

	var blocks []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if json.Unmarshal(raw, &blocks) == nil {
		var texts []string
		for _, block := range blocks {
			if block.Type == "text" && block.Text != "" {
				texts = append(texts, block.Text)
			}
		}
		if len(texts) > 0 {
			return strings.Join(texts, "\n")
		}
	}
	return string(raw)
}

func compactJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	var buffer bytes.Buffer
	if json.Compact(&buffer, raw) != nil {
		return string(raw)
	}
	return buffer.String()
}
