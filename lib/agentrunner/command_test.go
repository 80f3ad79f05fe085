// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

package agentrunner

import (
	"strings"
	"testing"

	"github.com/desktop-assist/desktop-assist/lib/process"
)

func TestBuildArgs(t *testing.T) {
	t.Parallel()
	config := Config{}
	config.applyDefaults()

	got := BuildArgs(config, "open the calculator", "SYSTEM")
	want := []string{
		"-p", "--output-format", "stream-json", "--verbose", "--no-session-persistence",
		"--system-prompt", "SYSTEM",
		"--allowedTools", "Bash", "Read",
		"--dangerously-skip-permissions",
		"--max-budget-usd", "1.00",
		"open the calculator",
	}
	if strings.Join(got, "\x00") != strings.Join(want, "\x00") {
		t.Errorf("BuildArgs = %q, want %q", got, want)
	}
}

func TestBuildArgsOptionalFlags(t *testing.T) {
	t.Parallel()
	config := Config{Model: "sonnet", MaxTurns: 12, BudgetUSD: 2.5}
	config.applyDefaults()

	got := strings.Join(BuildArgs(config, "task", "SYSTEM"), " ")
	if !strings.HasSuffix(got, "--max-budget-usd 2.50 --max-turns 12 --model sonnet task") {
		t.Errorf("BuildArgs = %q, want budget, turns, and model before the task", got)
	}
}

func TestShellJoin(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"plain", []string{"-p", "--max-turns", "5"}, "claude -p --max-turns 5"},
		{"spaces", []string{"open the app"}, "claude 'open the app'"},
		{"single quote", []string{"it's"}, `claude 'it'\''s'`},
		{"empty", []string{""}, "claude ''"},
		{"newline", []string{"a\nb"}, "claude 'a\nb'"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			if got := ShellJoin("claude", test.args); got != test.want {
				t.Errorf("ShellJoin = %q, want %q", got, test.want)
			}
		})
	}
}

func TestBuildSystemPrompt(t *testing.T) {
	t.Parallel()
	prompt := BuildSystemPrompt(Instructions{
		Platform:    "macOS",
		ToolCatalog: "\n## screen\n- **screen.save_screenshot**(path) -> str",
		Interpreter: "/opt/venv/bin/python",
	})
	for _, want := range []string{
		"controlling a macOS computer",
		"screen.save_screenshot",
		"The python executable is: /opt/venv/bin/python",
		`/opt/venv/bin/python -c "`,
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
	for _, unwanted := range []string{"{platform}", "{tools}", "{python}", "## User instructions", "## Previous session"} {
		if strings.Contains(prompt, unwanted) {
			t.Errorf("system prompt contains %q", unwanted)
		}
	}
}

func TestBuildSystemPromptSections(t *testing.T) {
	t.Parallel()
	prompt := BuildSystemPrompt(Instructions{
		Platform: "linux",
		Custom:   "  Prefer keyboard shortcuts.\n",
		Resume:   "RESUMING PREVIOUS SESSION x",
	})
	custom := strings.Index(prompt, "## User instructions\n\nPrefer keyboard shortcuts.\n")
	resume := strings.Index(prompt, "## Previous session\n\nRESUMING PREVIOUS SESSION x\n")
	if custom < 0 || resume < 0 {
		t.Fatalf("sections missing from prompt:\n%s", prompt)
	}
	if custom > resume {
		t.Error("user instructions should precede the previous session")
	}
	if !strings.Contains(prompt, "The python executable is: python3") {
		t.Error("interpreter should default to python3")
	}
}

func TestOutcomeStatusAndExitCode(t *testing.T) {
	t.Parallel()
	tests := []struct {
		outcome  Outcome
		status   string
		exitCode int
	}{
		{Outcome{Kind: KindResult}, "done", process.ExitSuccess},
		{Outcome{Kind: KindResult, IsError: true}, "error", process.ExitFailure},
		{Outcome{Kind: KindEmpty, IsError: true}, "error", process.ExitFailure},
		{Outcome{Kind: KindUnexpectedExit, IsError: true}, "error", process.ExitFailure},
		{Outcome{Kind: KindInternal, IsError: true}, "error", process.ExitFailure},
		{Outcome{Kind: KindLaunchFailed, IsError: true}, "error", process.ExitUsage},
		{Outcome{Kind: KindTimedOut, IsError: true}, "timeout", process.ExitTimeout},
		{Outcome{Kind: KindCancelled, IsError: true}, "interrupted", process.ExitInterrupted},
		{Outcome{Kind: KindDryRun}, "done", process.ExitSuccess},
	}
	for _, test := range tests {
		if got := test.outcome.Status(); got != test.status {
			t.Errorf("%s (error=%v): Status = %q, want %q", test.outcome.Kind, test.outcome.IsError, got, test.status)
		}
		if got := test.outcome.ExitCode(); got != test.exitCode {
			t.Errorf("%s (error=%v): ExitCode = %d, want %d", test.outcome.Kind, test.outcome.IsError, got, test.exitCode)
		}
	}
}
