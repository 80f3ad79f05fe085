// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

package agentrunner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/desktop-assist/desktop-assist/lib/clock"
	"github.com/desktop-assist/desktop-assist/lib/sessionlog"
	"github.com/desktop-assist/desktop-assist/lib/streamjson"
	"github.com/desktop-assist/desktop-assist/lib/supervisor"
)

const (
	DefaultBinary    = "claude"
	DefaultBudgetUSD = 1.00

	// stderrPreview bounds the stderr excerpt in failure texts.
	stderrPreview = 500
)

// DefaultAllowedTools are the agent tools a run may use.
var DefaultAllowedTools = []string{"Bash", "Read"}

// Config describes one run. The zero value (plus a task) runs the
// default agent binary without a session log, timeout, or custom
// instructions.
type Config struct {
	// Binary is the agent CLI, resolved on PATH. Default "claude".
	Binary string

	// Model is passed through when set.
	Model string

	// MaxTurns limits agent turns. Zero leaves it to the agent.
	MaxTurns int

	// BudgetUSD is the spend ceiling. Default DefaultBudgetUSD.
	BudgetUSD float64

	// AllowedTools defaults to DefaultAllowedTools.
	AllowedTools []string

	// Interpreter is the python executable named in the instructions
	// and stripped from command summaries. Default "python3".
	Interpreter string

	// Platform names the controlled computer. Default PlatformName().
	Platform string

	// ToolCatalog is the rendered tool registry.
	ToolCatalog string

	// CustomInstructions is appended to the system instructions.
	CustomInstructions string

	// Resume, when set, continues a prior session: its prompt is added
	// to the system instructions and the session log records it.
	Resume *sessionlog.Resume

	// Timeout bounds the run. Zero means no limit.
	Timeout     time.Duration
	GracePeriod time.Duration
	ReapTimeout time.Duration

	// Force, when closed, kills the agent without waiting out the
	// grace period.
	Force <-chan struct{}

	Dir string
	Env []string

	// SessionsDir receives the session log. Empty disables logging.
	SessionsDir      string
	LogPreviewLength int

	// MarkerDir receives the active-run marker used for orphan reaping.
	// Empty disables markers.
	MarkerDir string

	// SummaryLength and PreviewLength bound decoded tool summaries and
	// result previews.
	SummaryLength int
	PreviewLength int

	// DryRun returns the command line without launching anything.
	DryRun bool

	Observer Observer
	Clock    clock.Clock
	Logger   *slog.Logger
}

func (config *Config) applyDefaults() {
	if config.Binary == "" {
		config.Binary = DefaultBinary
	}
	if config.BudgetUSD <= 0 {
		config.BudgetUSD = DefaultBudgetUSD
	}
	if config.AllowedTools == nil {
		config.AllowedTools = DefaultAllowedTools
	}
	if config.Interpreter == "" {
		config.Interpreter = "python3"
	}
	if config.Platform == "" {
		config.Platform = PlatformName()
	}
	if config.Observer == nil {
		config.Observer = nopObserver{}
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
}

// Command returns the agent binary and arguments for task.
func Command(config Config, task string) (string, []string) {
	config.applyDefaults()
	return config.Binary, BuildArgs(config, task, systemPrompt(config))
}

func systemPrompt(config Config) string {
	instructions := Instructions{
		Platform:    config.Platform,
		ToolCatalog: config.ToolCatalog,
		Interpreter: config.Interpreter,
		Custom:      config.CustomInstructions,
	}
	if config.Resume != nil {
		instructions.Resume = config.Resume.Prompt
	}
	return BuildSystemPrompt(instructions)
}

// Run executes task and returns its outcome. Run never returns early:
// when it returns, the agent's process group is gone and the session
// log (if enabled) ends with a done record.
func Run(ctx context.Context, config Config, task string) Outcome {
	config.applyDefaults()
	binary, args := Command(config, task)

	if config.DryRun {
		outcome := Outcome{Kind: KindDryRun, Text: PrefixDryRun + ShellJoin(binary, args)}
		config.Observer.Finished(outcome)
		return outcome
	}

	r := &runner{config: config}
	r.openLog(task)
	logger := config.Logger.With("session_id", r.sessionID)
	config.Observer.Started(r.sessionID, r.sessionPath())

	decoder := streamjson.NewDecoder(streamjson.Options{
		Clock:         config.Clock,
		SummaryLength: config.SummaryLength,
		PreviewLength: config.PreviewLength,
		Interpreters:  []string{config.Interpreter},
	})

	started := config.Clock.Now()
	exit, err := supervisor.Run(ctx, supervisor.Config{
		Binary:      binary,
		Args:        args,
		Dir:         config.Dir,
		Env:         config.Env,
		Timeout:     config.Timeout,
		GracePeriod: config.GracePeriod,
		ReapTimeout: config.ReapTimeout,
		Force:       config.Force,
		MarkerDir:   config.MarkerDir,
		SessionID:   r.sessionID,
		Clock:       config.Clock,
		Logger:      logger,
	}, func(line string) bool {
		for _, event := range decoder.Decode(line) {
			r.record(event)
			config.Observer.Event(event)
			if event.Kind == streamjson.KindResult {
				r.result = event.Result
				return true
			}
		}
		return false
	})

	outcome := r.outcome(exit, err)
	outcome.Steps = decoder.Steps()
	outcome.Elapsed = clock.Since(config.Clock, started)
	outcome.Exit = exit
	outcome.SessionID = r.sessionID
	outcome.SessionPath = r.sessionPath()

	r.finish(outcome)
	outcome.LogError = r.logErr
	if r.logErr != nil {
		logger.Warn("session log incomplete", "path", outcome.SessionPath, "error", r.logErr)
	}
	logger.Debug("agent run finished",
		"kind", outcome.Kind,
		"status", outcome.Status(),
		"exit_code", exit.ExitCode,
		"steps", outcome.Steps,
		"escalated", exit.Escalated,
	)

	config.Observer.Finished(outcome)
	return outcome
}

// runner holds one run's session log state. The log is written from
// the stdout reader while the agent runs and from Run afterwards;
// supervisor.Run orders the two.
type runner struct {
	config    Config
	sessionID string
	log       *sessionlog.Writer
	logErr    error
	result    *streamjson.Result
}

func (r *runner) openLog(task string) {
	if r.config.SessionsDir == "" {
		r.sessionID = sessionlog.NewID(r.config.Clock.Now())
		return
	}
	writer, err := sessionlog.Create(r.config.SessionsDir, sessionlog.Options{
		Clock:         r.config.Clock,
		PreviewLength: r.config.LogPreviewLength,
	})
	if err != nil {
		r.logErr = err
		r.sessionID = sessionlog.NewID(r.config.Clock.Now())
		return
	}
	r.log = writer
	r.sessionID = writer.ID()
	r.check(writer.LogStart(task, r.config.Model, r.config.MaxTurns))
	if r.config.Resume != nil {
		r.check(writer.LogResume(r.config.Resume.ID))
	}
}

func (r *runner) sessionPath() string {
	if r.log == nil {
		return ""
	}
	return r.log.Path()
}

// check keeps the first log failure. Later records are still
// attempted: a transient failure should not lose the done record.
func (r *runner) check(err error) {
	if err != nil && r.logErr == nil {
		r.logErr = err
	}
}

func (r *runner) record(event streamjson.Event) {
	if r.log == nil {
		return
	}
	switch event.Kind {
	case streamjson.KindToolCall:
		call := event.ToolCall
		command := call.Detail
		if command == "" {
			command = call.Summary
		}
		r.check(r.log.LogToolCall(call.Step, call.Name, call.ID, command))
	case streamjson.KindToolResult:
		result := event.ToolResult
		var elapsed *time.Duration
		if result.Timed {
			elapsed = &result.Elapsed
		}
		r.check(r.log.LogToolResult(result.Step, result.ID, result.IsError, result.Output, elapsed))
	case streamjson.KindText:
		r.check(r.log.LogText(event.Text.Text))
	}
}

func (r *runner) finish(outcome Outcome) {
	if r.log == nil {
		return
	}
	r.check(r.log.LogDone(outcome.Steps, outcome.Elapsed, outcome.Status(), outcome.Text, outcome.Usage))
	r.check(r.log.Close())
}

func (r *runner) outcome(exit supervisor.Exit, err error) Outcome {
	// A result counts only when it ended the run. One written while the
	// group was being terminated (from a SIGTERM handler, say) does not
	// turn a timeout or cancellation into success.
	if r.result != nil && exit.Status == supervisor.StatusFinished {
		return Outcome{
			Kind:    KindResult,
			Text:    r.result.Text,
			IsError: r.result.IsError,
			Usage:   r.result.Usage,
		}
	}

	var launchErr *supervisor.LaunchError
	switch {
	case errors.As(err, &launchErr):
		text := fmt.Sprintf("%sfailed to start %q: %v", PrefixError, r.config.Binary, launchErr.Err)
		if errors.Is(err, exec.ErrNotFound) {
			text = fmt.Sprintf("%s'%s' CLI not found. Install it with: npm install -g @anthropic-ai/claude-code",
				PrefixError, r.config.Binary)
		}
		return Outcome{Kind: KindLaunchFailed, Text: text, IsError: true}
	case err != nil:
		return Outcome{Kind: KindInternal, Text: PrefixError + err.Error(), IsError: true}
	}

	var usage streamjson.Usage
	if r.result != nil {
		usage = r.result.Usage
	}
	switch exit.Status {
	case supervisor.StatusTimedOut:
		return Outcome{
			Kind:    KindTimedOut,
			Text:    fmt.Sprintf("%sAgent did not finish within %s.", PrefixTimeout, r.config.Timeout),
			IsError: true,
			Usage:   usage,
		}
	case supervisor.StatusCancelled:
		return Outcome{Kind: KindCancelled, Text: PrefixError + "Agent interrupted by user.", IsError: true, Usage: usage}
	}

	if exit.ExitCode == 0 {
		return Outcome{Kind: KindEmpty, Text: PrefixError + "Empty response from Claude CLI.", IsError: true}
	}
	kind := KindUnexpectedExit
	if exit.StdoutBytes == 0 {
		kind = KindEmpty
	}
	text := fmt.Sprintf("%sClaude CLI exited with code %d.", PrefixError, exit.ExitCode)
	if stderr := strings.TrimSpace(exit.Stderr); stderr != "" {
		text += " stderr: " + streamjson.Truncate(stderr, stderrPreview)
	}
	return Outcome{Kind: kind, Text: text, IsError: true}
}
