// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

package sessionlog

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desktop-assist/desktop-assist/lib/clock"
	"github.com/desktop-assist/desktop-assist/lib/streamjson"
)

func writePairs(t *testing.T, writer *Writer, pairs int) {
	t.Helper()
	for step := 1; step <= pairs; step++ {
		id := fmt.Sprintf("toolu_%d", step)
		if err := writer.LogToolCall(step, "Bash", id, fmt.Sprintf("echo step %d", step)); err != nil {
			t.Fatal(err)
		}
		if err := writer.LogToolResult(step, id, step%7 == 0, "out", nil); err != nil {
			t.Fatal(err)
		}
	}
}

func TestBuildResumePromptCapsTranscript(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writer := newTestWriter(t, dir, Options{Clock: clock.Fake(epoch)})
	if err := writer.LogStart("file the expense report", "opus", 50); err != nil {
		t.Fatal(err)
	}
	writePairs(t, writer, 40)

	resume, err := BuildResumePrompt(dir, writer.ID(), 0)
	if err != nil {
		t.Fatalf("BuildResumePrompt: %v", err)
	}
	if len(resume.Transcript) > DefaultResumeLines {
		t.Errorf("transcript has %d lines, want at most %d", len(resume.Transcript), DefaultResumeLines)
	}
	if resume.Task != "file the expense report" || resume.Model != "opus" {
		t.Errorf("Task/Model = %q/%q", resume.Task, resume.Model)
	}
	if resume.Status != ResumeInterrupted {
		t.Errorf("Status = %q, want %q", resume.Status, ResumeInterrupted)
	}
	for _, want := range []string{"file the expense report", "opus", "Do NOT repeat steps", "echo step 40", "status: interrupted"} {
		if !strings.Contains(resume.Prompt, want) {
			t.Errorf("Prompt missing %q:\n%s", want, resume.Prompt)
		}
	}
	// The oldest steps fall outside the cap.
	if strings.Contains(resume.Prompt, "echo step 1\n") {
		t.Errorf("Prompt contains step 1, want only the most recent lines:\n%s", resume.Prompt)
	}
	// The cap keeps whole lines, most recent last.
	last := resume.Transcript[len(resume.Transcript)-1]
	if last != "    -> OK" {
		t.Errorf("last transcript line = %q, want the result of step 40", last)
	}
}

func TestBuildResumePromptMarksErrors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writer := newTestWriter(t, dir, Options{Clock: clock.Fake(epoch)})
	writer.LogStart("task", "", 0)
	writePairs(t, writer, 7)

	resume, err := BuildResumePrompt(dir, writer.ID(), 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(resume.Transcript) != 14 {
		t.Fatalf("transcript has %d lines, want 14", len(resume.Transcript))
	}
	if resume.Transcript[12] != "  - [7] Bash: echo step 7" || resume.Transcript[13] != "    -> ERROR" {
		t.Errorf("last pair = %q / %q", resume.Transcript[12], resume.Transcript[13])
	}
	if strings.Contains(resume.Prompt, "Original model") {
		t.Errorf("Prompt mentions a model the run did not use:\n%s", resume.Prompt)
	}
}

func TestBuildResumePromptStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status string
		want   string
	}{
		{StatusDone, ResumeCompleted},
		{StatusInterrupted, ResumeInterrupted},
		{StatusTimeout, ResumeInterrupted},
		{StatusError, ResumeInterrupted},
	}
	for _, test := range tests {
		dir := t.TempDir()
		writer := newTestWriter(t, dir, Options{Clock: clock.Fake(epoch)})
		writer.LogStart("task", "", 0)
		writer.LogDone(0, time.Second, test.status, "", streamjson.Usage{})

		resume, err := BuildResumePrompt(dir, writer.ID(), 0)
		if err != nil {
			t.Fatal(err)
		}
		if resume.Status != test.want {
			t.Errorf("done status %q: resume status = %q, want %q", test.status, resume.Status, test.want)
		}
	}
}

func TestBuildResumePromptNotFound(t *testing.T) {
	t.Parallel()
	_, err := BuildResumePrompt(filepath.Join(t.TempDir(), "none"), "20260301_000000_00000000", 0)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
