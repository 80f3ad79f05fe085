// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

//go:build unix

package agentrunner

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desktop-assist/desktop-assist/lib/clock"
	"github.com/desktop-assist/desktop-assist/lib/sessionlog"
	"github.com/desktop-assist/desktop-assist/lib/streamjson"
	"github.com/desktop-assist/desktop-assist/lib/testutil"
)

const testTimeout = 15 * time.Second

const (
	toolUseLine    = `{"type":"assistant","message":{"content":[{"type":"tool_use","id":"toolu_1","name":"Bash","input":{"command":"ls /tmp"}}]}}`
	toolResultLine = `{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"toolu_1","content":"screen.png"}]}}`
	textLine       = `{"type":"assistant","message":{"content":[{"type":"text","text":"Looking at the screen."}]}}`
	resultLine     = `{"type":"result","is_error":false,"result":"Opened the calculator.","total_cost_usd":0.05,"num_turns":2}`
)

// recorder is an Observer that keeps everything it is told.
type recorder struct {
	mutex     sync.Mutex
	sessionID string
	events    []streamjson.Event
	finished  []Outcome

	// first is closed on the first event.
	first chan struct{}
	once  sync.Once
}

func newRecorder() *recorder {
	return &recorder{first: make(chan struct{})}
}

func (r *recorder) Started(sessionID, sessionPath string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.sessionID = sessionID
}

func (r *recorder) Event(event streamjson.Event) {
	r.mutex.Lock()
	r.events = append(r.events, event)
	r.mutex.Unlock()
	r.once.Do(func() { close(r.first) })
}

func (r *recorder) Finished(outcome Outcome) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.finished = append(r.finished, outcome)
}

func (r *recorder) kinds() []string {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	var kinds []string
	for _, event := range r.events {
		kinds = append(kinds, string(event.Kind))
	}
	return kinds
}

func testConfig(t *testing.T, binary string) (Config, *recorder) {
	t.Helper()
	observer := newRecorder()
	return Config{
		Binary:      binary,
		SessionsDir: filepath.Join(t.TempDir(), "sessions"),
		GracePeriod: 2 * time.Second,
		ReapTimeout: 2 * time.Second,
		Observer:    observer,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, observer
}

// streamScript returns a fake agent that prints lines then runs tail.
func streamScript(t *testing.T, tail string, lines ...string) string {
	t.Helper()
	return testutil.WriteScript(t, "claude", "cat <<'EOF'\n"+testutil.StreamLines(lines...)+"EOF\n"+tail)
}

func replayDone(t *testing.T, dir, id string) (records []sessionlog.Record, done sessionlog.Record) {
	t.Helper()
	records, err := sessionlog.Replay(dir, id)
	if err != nil {
		t.Fatalf("Replay(%s): %v", id, err)
	}
	if len(records) == 0 {
		t.Fatal("session log is empty")
	}
	done = records[len(records)-1]
	if done.Event != sessionlog.EventDone {
		t.Fatalf("last record = %q, want done", done.Event)
	}
	for _, record := range records[:len(records)-1] {
		if record.Event == sessionlog.EventDone {
			t.Fatal("session log has more than one done record")
		}
	}
	return records, done
}

func TestRunResult(t *testing.T) {
	t.Parallel()
	script := streamScript(t, "exit 0", toolUseLine, toolResultLine, textLine, resultLine)
	config, observer := testConfig(t, script)

	outcome := Run(context.Background(), config, "open the calculator")

	if outcome.Kind != KindResult || outcome.IsError {
		t.Fatalf("outcome = %s (error=%v) %q, want successful result", outcome.Kind, outcome.IsError, outcome.Text)
	}
	if outcome.Text != "Opened the calculator." {
		t.Errorf("Text = %q", outcome.Text)
	}
	if outcome.Steps != 1 {
		t.Errorf("Steps = %d, want 1", outcome.Steps)
	}
	if outcome.Usage.CostUSD == nil || *outcome.Usage.CostUSD != 0.05 {
		t.Errorf("Usage.CostUSD = %v, want 0.05", outcome.Usage.CostUSD)
	}
	if outcome.LogError != nil {
		t.Errorf("LogError = %v", outcome.LogError)
	}
	if outcome.SessionPath == "" || observer.sessionID != outcome.SessionID {
		t.Errorf("SessionID/Path = %q/%q, observer saw %q", outcome.SessionID, outcome.SessionPath, observer.sessionID)
	}
	wantKinds := "tool_call tool_result text result"
	if got := strings.Join(observer.kinds(), " "); got != wantKinds {
		t.Errorf("observed events = %q, want %q", got, wantKinds)
	}
	if len(observer.finished) != 1 {
		t.Errorf("Finished called %d times, want 1", len(observer.finished))
	}

	records, done := replayDone(t, config.SessionsDir, outcome.SessionID)
	var events []string
	for _, record := range records {
		events = append(events, record.Event)
	}
	if got := strings.Join(events, " "); got != "start tool_call tool_result text done" {
		t.Errorf("logged events = %q", got)
	}
	if records[0].Prompt != "open the calculator" {
		t.Errorf("start prompt = %q", records[0].Prompt)
	}
	if records[1].Command != "ls /tmp" || records[1].Tool != "Bash" {
		t.Errorf("tool_call record = %+v", records[1])
	}
	if done.Status != sessionlog.StatusDone || done.ResultPreview != "Opened the calculator." {
		t.Errorf("done record = status %q result %q", done.Status, done.ResultPreview)
	}
	if done.Steps == nil || *done.Steps != 1 {
		t.Errorf("done steps = %v, want 1", done.Steps)
	}
}

func TestRunErrorResult(t *testing.T) {
	t.Parallel()
	script := streamScript(t, "exit 1", `{"type":"result","is_error":true,"result":"Rate limit exceeded"}`)
	config, _ := testConfig(t, script)

	outcome := Run(context.Background(), config, "task")

	if outcome.Kind != KindResult || !outcome.IsError {
		t.Fatalf("outcome = %s (error=%v), want error result", outcome.Kind, outcome.IsError)
	}
	if outcome.Text != "[error] Rate limit exceeded" {
		t.Errorf("Text = %q", outcome.Text)
	}
	_, done := replayDone(t, config.SessionsDir, outcome.SessionID)
	if done.Status != sessionlog.StatusError {
		t.Errorf("done status = %q, want error", done.Status)
	}
}

func TestRunEmptyOutputCarriesStderr(t *testing.T) {
	t.Parallel()
	script := testutil.WriteScript(t, "claude", `echo "authentication failed" >&2; exit 3`)
	config, _ := testConfig(t, script)

	outcome := Run(context.Background(), config, "task")

	if outcome.Kind != KindEmpty {
		t.Fatalf("Kind = %s, want empty", outcome.Kind)
	}
	want := "[error] Claude CLI exited with code 3. stderr: authentication failed"
	if outcome.Text != want {
		t.Errorf("Text = %q, want %q", outcome.Text, want)
	}
	if outcome.ExitCode() != 1 {
		t.Errorf("ExitCode = %d, want 1", outcome.ExitCode())
	}
	_, done := replayDone(t, config.SessionsDir, outcome.SessionID)
	if done.Status != sessionlog.StatusError {
		t.Errorf("done status = %q, want error", done.Status)
	}
}

func TestRunUnexpectedExit(t *testing.T) {
	t.Parallel()
	script := streamScript(t, "exit 2", toolUseLine, "not json at all")
	config, observer := testConfig(t, script)

	outcome := Run(context.Background(), config, "task")

	if outcome.Kind != KindUnexpectedExit {
		t.Fatalf("Kind = %s, want unexpected_exit", outcome.Kind)
	}
	if outcome.Text != "[error] Claude CLI exited with code 2." {
		t.Errorf("Text = %q", outcome.Text)
	}
	if got := strings.Join(observer.kinds(), " "); got != "tool_call unparseable" {
		t.Errorf("observed events = %q", got)
	}
}

func TestRunCleanExitWithoutResult(t *testing.T) {
	t.Parallel()
	script := streamScript(t, "exit 0", textLine)
	config, _ := testConfig(t, script)

	outcome := Run(context.Background(), config, "task")

	if outcome.Kind != KindEmpty || outcome.Text != "[error] Empty response from Claude CLI." {
		t.Errorf("outcome = %s %q", outcome.Kind, outcome.Text)
	}
}

func TestRunLaunchFailure(t *testing.T) {
	t.Parallel()
	config, observer := testConfig(t, "desktop-assist-no-such-agent")

	outcome := Run(context.Background(), config, "task")

	if outcome.Kind != KindLaunchFailed {
		t.Fatalf("Kind = %s, want launch_failed", outcome.Kind)
	}
	if !strings.HasPrefix(outcome.Text, "[error] 'desktop-assist-no-such-agent' CLI not found.") {
		t.Errorf("Text = %q", outcome.Text)
	}
	if outcome.ExitCode() != 2 {
		t.Errorf("ExitCode = %d, want 2", outcome.ExitCode())
	}
	if len(observer.finished) != 1 {
		t.Errorf("Finished called %d times, want 1", len(observer.finished))
	}
	_, done := replayDone(t, config.SessionsDir, outcome.SessionID)
	if done.Status != sessionlog.StatusError {
		t.Errorf("done status = %q, want error", done.Status)
	}
}

func TestRunLaunchFailureNotExecutable(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "claude")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	config, _ := testConfig(t, path)

	outcome := Run(context.Background(), config, "task")

	if outcome.Kind != KindLaunchFailed {
		t.Fatalf("Kind = %s, want launch_failed", outcome.Kind)
	}
	if strings.Contains(outcome.Text, "not found") {
		t.Errorf("Text = %q, want a start failure rather than not found", outcome.Text)
	}
}

func TestRunDryRun(t *testing.T) {
	t.Parallel()
	config, observer := testConfig(t, "/nonexistent/claude")
	config.DryRun = true
	config.Model = "opus"

	outcome := Run(context.Background(), config, "open the app")

	if outcome.Kind != KindDryRun || outcome.IsError {
		t.Fatalf("outcome = %s (error=%v)", outcome.Kind, outcome.IsError)
	}
	if !strings.HasPrefix(outcome.Text, "[dry-run] /nonexistent/claude -p --output-format stream-json") {
		t.Errorf("Text = %q", outcome.Text)
	}
	if !strings.HasSuffix(outcome.Text, "--model opus 'open the app'") {
		t.Errorf("Text = %q, want model and quoted task at the end", outcome.Text)
	}
	if _, err := os.Stat(config.SessionsDir); !os.IsNotExist(err) {
		t.Errorf("dry run created the sessions directory (err=%v)", err)
	}
	if len(observer.events) != 0 || len(observer.finished) != 1 {
		t.Errorf("observer saw %d events, %d finishes", len(observer.events), len(observer.finished))
	}
}

func TestRunTimeout(t *testing.T) {
	t.Parallel()
	script := streamScript(t, "sleep 300", textLine)
	config, observer := testConfig(t, script)
	fake := clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	config.Clock = fake
	config.Timeout = 5 * time.Minute

	outcomes := make(chan Outcome, 1)
	go func() { outcomes <- Run(context.Background(), config, "task") }()
	testutil.RequireClosed(t, observer.first, testTimeout, "agent output observed")

	fake.WaitForTimers(1)
	fake.Advance(5 * time.Minute)

	outcome := testutil.RequireReceive(t, outcomes, testTimeout, "run returns after timeout")
	if outcome.Kind != KindTimedOut {
		t.Fatalf("Kind = %s, want timed_out", outcome.Kind)
	}
	if outcome.Text != "[timeout] Agent did not finish within 5m0s." {
		t.Errorf("Text = %q", outcome.Text)
	}
	if outcome.ExitCode() != 124 {
		t.Errorf("ExitCode = %d, want 124", outcome.ExitCode())
	}
	records, done := replayDone(t, config.SessionsDir, outcome.SessionID)
	if done.Status != sessionlog.StatusTimeout {
		t.Errorf("done status = %q, want timeout", done.Status)
	}
	if records[1].Event != sessionlog.EventText {
		t.Errorf("record 1 = %q, want the text written before the timeout", records[1].Event)
	}
}

func TestRunCancelled(t *testing.T) {
	t.Parallel()
	script := streamScript(t, "sleep 300", textLine)
	config, observer := testConfig(t, script)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	outcomes := make(chan Outcome, 1)
	go func() { outcomes <- Run(ctx, config, "task") }()
	testutil.RequireClosed(t, observer.first, testTimeout, "agent output observed")
	cancel()

	outcome := testutil.RequireReceive(t, outcomes, testTimeout, "run returns after cancel")
	if outcome.Kind != KindCancelled || outcome.Text != "[error] Agent interrupted by user." {
		t.Fatalf("outcome = %s %q", outcome.Kind, outcome.Text)
	}
	if outcome.ExitCode() != 130 {
		t.Errorf("ExitCode = %d, want 130", outcome.ExitCode())
	}
	_, done := replayDone(t, config.SessionsDir, outcome.SessionID)
	if done.Status != sessionlog.StatusInterrupted {
		t.Errorf("done status = %q, want interrupted", done.Status)
	}
}

// A result the agent writes while it is being terminated does not turn
// the timeout or cancellation into success.
func TestRunResultDuringTerminationKeepsStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		timeout    bool
		wantKind   Kind
		wantStatus string
		wantExit   int
	}{
		{name: "cancelled", wantKind: KindCancelled, wantStatus: sessionlog.StatusInterrupted, wantExit: 130},
		{name: "timed out", timeout: true, wantKind: KindTimedOut, wantStatus: sessionlog.StatusTimeout, wantExit: 124},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			script := testutil.WriteScript(t, "claude", "emit() {\ncat <<'EOF'\n"+
				testutil.StreamLines(`{"type":"result","is_error":false,"result":"partial answer","total_cost_usd":0.02}`)+
				"EOF\n}\ntrap 'emit; exit 0' TERM\n"+
				"cat <<'EOF'\n"+testutil.StreamLines(textLine)+"EOF\n"+
				"while :; do sleep 0.1; done\n")
			config, observer := testConfig(t, script)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			var fake *clock.FakeClock
			if test.timeout {
				fake = clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
				config.Clock = fake
				config.Timeout = time.Minute
			}

			outcomes := make(chan Outcome, 1)
			go func() { outcomes <- Run(ctx, config, "task") }()
			testutil.RequireClosed(t, observer.first, testTimeout, "agent output observed")
			if test.timeout {
				fake.WaitForTimers(1)
				fake.Advance(time.Minute)
			} else {
				cancel()
			}

			outcome := testutil.RequireReceive(t, outcomes, testTimeout, "run returns after termination")
			if outcome.Kind != test.wantKind {
				t.Fatalf("Kind = %s (%q), want %s", outcome.Kind, outcome.Text, test.wantKind)
			}
			if outcome.ExitCode() != test.wantExit {
				t.Errorf("ExitCode = %d, want %d", outcome.ExitCode(), test.wantExit)
			}
			if got := observer.kinds(); got[len(got)-1] != string(streamjson.KindResult) {
				t.Fatalf("events = %v, want the result written on SIGTERM last", got)
			}
			if outcome.Usage.CostUSD == nil || *outcome.Usage.CostUSD != 0.02 {
				t.Errorf("Usage = %+v, want the reported cost kept", outcome.Usage)
			}
			_, done := replayDone(t, config.SessionsDir, outcome.SessionID)
			if done.Status != test.wantStatus {
				t.Errorf("done status = %q, want %q", done.Status, test.wantStatus)
			}
		})
	}
}

func TestRunSurvivesUnwritableLog(t *testing.T) {
	t.Parallel()
	script := streamScript(t, "exit 0", resultLine)
	config, _ := testConfig(t, script)
	// A regular file where the sessions directory should be.
	blocker := filepath.Join(t.TempDir(), "sessions")
	if err := os.WriteFile(blocker, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	config.SessionsDir = blocker

	outcome := Run(context.Background(), config, "task")

	if outcome.Kind != KindResult || outcome.IsError {
		t.Fatalf("outcome = %s (error=%v), want the run to succeed", outcome.Kind, outcome.IsError)
	}
	if outcome.LogError == nil {
		t.Error("LogError = nil, want the session log failure")
	}
	if outcome.SessionID == "" || outcome.SessionPath != "" {
		t.Errorf("SessionID/Path = %q/%q, want an id without a path", outcome.SessionID, outcome.SessionPath)
	}
}

func TestRunWithoutSessionLog(t *testing.T) {
	t.Parallel()
	script := streamScript(t, "exit 0", resultLine)
	config, _ := testConfig(t, script)
	config.SessionsDir = ""

	outcome := Run(context.Background(), config, "task")

	if outcome.Kind != KindResult || outcome.LogError != nil || outcome.SessionPath != "" {
		t.Errorf("outcome = %s LogError=%v path=%q", outcome.Kind, outcome.LogError, outcome.SessionPath)
	}
}

func TestRunResumeRecordsPreviousSession(t *testing.T) {
	t.Parallel()
	script := streamScript(t, "exit 0", resultLine)
	config, _ := testConfig(t, script)
	config.Resume = &sessionlog.Resume{ID: "20260301_120000_abcdef01", Prompt: "RESUMING PREVIOUS SESSION 20260301_120000_abcdef01"}

	_, args := Command(config, "task")
	prompt := args[6]
	if !strings.Contains(prompt, "## Previous session\n\nRESUMING PREVIOUS SESSION") {
		t.Errorf("system prompt lacks the resume section")
	}
	if args[len(args)-1] != "task" {
		t.Errorf("positional task = %q, want the original task", args[len(args)-1])
	}

	outcome := Run(context.Background(), config, "task")
	records, _ := replayDone(t, config.SessionsDir, outcome.SessionID)
	if records[1].Event != sessionlog.EventResume || records[1].PreviousSession != config.Resume.ID {
		t.Errorf("record 1 = %q from %q, want resume of %q", records[1].Event, records[1].PreviousSession, config.Resume.ID)
	}
}

func TestRunWritesMarkerDuringRun(t *testing.T) {
	t.Parallel()
	markers := t.TempDir()
	// The marker is written once the child has a pid, so wait for it.
	script := streamScript(t, `
i=0
while [ $i -lt 50 ] && [ -z "$(ls "$MARKERS")" ]; do sleep 0.1; i=$((i+1)); done
ls "$MARKERS" >&2
exit 4`)
	config, _ := testConfig(t, script)
	config.MarkerDir = markers
	config.Env = append(os.Environ(), "MARKERS="+markers)

	outcome := Run(context.Background(), config, "task")

	if !strings.Contains(outcome.Text, outcome.SessionID+".json") {
		t.Errorf("Text = %q, want the marker listed while the agent ran", outcome.Text)
	}
	entries, err := os.ReadDir(markers)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("%d markers left after the run", len(entries))
	}
}
