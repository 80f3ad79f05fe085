// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

package sessionlog

import (
	"fmt"
	"strings"
)

// DefaultResumeLines caps the transcript carried into a resume prompt.
const DefaultResumeLines = 30

// Resume statuses.
const (
	ResumeCompleted   = "completed"
	ResumeInterrupted = "interrupted"
)

// Resume is a prior run folded into continuation instructions.
type Resume struct {
	// ID is the session being resumed.
	ID string

	// Task and Model come from the start record. Model is empty when
	// the prior run used the default.
	Task  string
	Model string

	// Status is ResumeCompleted when the prior run finished normally
	// and ResumeInterrupted otherwise.
	Status string

	// Transcript holds the most recent transcript lines, oldest first.
	Transcript []string

	// Prompt is the full continuation text handed to the agent.
	Prompt string
}

// BuildResumePrompt replays session id and renders its last maxLines
// transcript lines (DefaultResumeLines when maxLines <= 0) into
// instructions telling the agent to continue the original task without
// repeating steps that already succeeded.
func BuildResumePrompt(dir, id string, maxLines int) (Resume, error) {
	if maxLines <= 0 {
		maxLines = DefaultResumeLines
	}
	records, err := Replay(dir, id)
	if err != nil {
		return Resume{}, err
	}

	resume := Resume{ID: id, Status: ResumeInterrupted}
	var transcript []string
	for _, record := range records {
		switch record.Event {
		case EventStart:
			resume.Task = record.Prompt
			resume.Model = record.Model
		case EventToolCall:
			tool := record.Tool
			if tool == "" {
				tool = "?"
			}
			transcript = append(transcript, fmt.Sprintf("  - [%d] %s: %s", record.Step, tool, record.Command))
		case EventToolResult:
			status := "OK"
			if record.IsError != nil && *record.IsError {
				status = "ERROR"
			}
			transcript = append(transcript, "    -> "+status)
		case EventDone:
			// A run that ended by interrupt, timeout, or error wrote a
			// done record too; only a normal finish counts as completed.
			if record.Status == "" || record.Status == StatusDone {
				resume.Status = ResumeCompleted
			} else {
				resume.Status = ResumeInterrupted
			}
		}
	}
	if len(transcript) > maxLines {
		transcript = transcript[len(transcript)-maxLines:]
	}
	resume.Transcript = transcript
	resume.Prompt = renderResume(resume)
	return resume, nil
}

func renderResume(resume Resume) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "RESUMING PREVIOUS SESSION %s (status: %s).\n", resume.ID, resume.Status)
	fmt.Fprintf(&builder, "Original task: %s\n", resume.Task)
	if resume.Model != "" {
		fmt.Fprintf(&builder, "Original model: %s\n", resume.Model)
	}
	builder.WriteString("\nThe previous attempt performed these actions:\n")
	if len(resume.Transcript) == 0 {
		builder.WriteString("  (none recorded)\n")
	}
	for _, line := range resume.Transcript {
		builder.WriteString(line)
		builder.WriteByte('\n')
	}
	builder.WriteString("\nContinue from where the previous session left off. " +
		"Do NOT repeat steps that already succeeded. " +
		"Start by taking a screenshot to see the current screen state, " +
		"then continue working toward completing the original task.")
	return builder.String()
}
