// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/desktop-assist/desktop-assist/cmd/desktop-assist/cli"
	"github.com/desktop-assist/desktop-assist/lib/agentrunner"
	"github.com/desktop-assist/desktop-assist/lib/config"
	"github.com/desktop-assist/desktop-assist/lib/instructions"
	"github.com/desktop-assist/desktop-assist/lib/sessionlog"
	"github.com/desktop-assist/desktop-assist/lib/supervisor"
	"github.com/desktop-assist/desktop-assist/lib/toolcatalog"
)

type runParams struct {
	cli.JSONOutput
	Common commonFlags

	Model          string        `flag:"model,m" desc:"agent model (default from config)"`
	MaxTurns       int           `flag:"max-turns" desc:"maximum agent turns (default from config)"`
	Budget         float64       `flag:"max-budget-usd" desc:"spend ceiling in USD (default from config)"`
	Timeout        time.Duration `flag:"timeout" desc:"wall clock limit for the run (default from config, 0 = none)"`
	NoLog          bool          `flag:"no-log" desc:"do not write a session log"`
	LogDir         string        `flag:"log-dir" desc:"session log directory (default from config)"`
	DryRun         bool          `flag:"dry-run" desc:"print the agent command line instead of running it"`
	Instructions   string        `flag:"instructions" desc:"custom instructions file (default: nearest .desktop-assist.md)"`
	NoInstructions bool          `flag:"no-instructions" desc:"do not load custom instructions"`
	Resume         string        `flag:"resume" desc:"continue the session with this id"`
	Colour         string        `flag:"colour" desc:"progress colour: auto, always, or never (default from config)"`
}

// runResult is the --json form of an outcome.
type runResult struct {
	Kind        agentrunner.Kind `json:"kind"`
	Text        string           `json:"text"`
	IsError     bool             `json:"is_error"`
	Status      string           `json:"status"`
	Steps       int              `json:"steps"`
	Elapsed     float64          `json:"elapsed_s"`
	SessionID   string           `json:"session_id,omitempty"`
	SessionPath string           `json:"session_path,omitempty"`
	ExitCode    int              `json:"exit_code"`
	Usage       any              `json:"usage,omitempty"`
	LogError    string           `json:"log_error,omitempty"`
}

func runCommand() *cli.Command {
	var params runParams
	return &cli.Command{
		Name:    "run",
		Summary: "Run a desktop automation task",
		Description: `Run a task through the agent CLI.

Progress is written to stderr; the agent's final answer is written to
stdout. The agent runs in its own process group and is terminated with
SIGTERM (then SIGKILL after the grace period) on timeout or interrupt.
A second interrupt kills it immediately.`,
		Usage: "desktop-assist run [flags] <task>",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("run", &params)
		},
		Examples: []cli.Example{
			{Description: "Run with a 10 minute limit", Command: "desktop-assist run --timeout 10m 'rename the files on the desktop'"},
			{Description: "Continue an interrupted session", Command: "desktop-assist run --resume 20260301_120000_abcdef01"},
			{Description: "Show the agent command line", Command: "desktop-assist run --dry-run 'open the calculator'"},
		},
		Run: func(ctx context.Context, args []string) error {
			return runTask(ctx, &params, strings.Join(args, " "))
		},
	}
}

func runTask(ctx context.Context, params *runParams, task string) error {
	cfg, err := params.Common.load()
	if err != nil {
		return err
	}
	logger := cli.NewCommandLogger(params.Common.Verbose)
	params.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return cli.Validation("%w", err)
	}

	profile, err := colourProfile(cfg.Display.Colour, os.Stderr)
	if err != nil {
		return err
	}

	runConfig := agentrunner.Config{
		Binary:           cfg.Agent.Binary,
		Model:            cfg.Agent.Model,
		MaxTurns:         cfg.Agent.MaxTurns,
		BudgetUSD:        cfg.Agent.MaxBudgetUSD,
		AllowedTools:     cfg.Agent.AllowedTools,
		Interpreter:      cfg.Agent.Interpreter,
		Timeout:          cfg.Timeout(),
		GracePeriod:      cfg.GracePeriod(),
		ReapTimeout:      cfg.ReapTimeout(),
		LogPreviewLength: cfg.SessionLog.PreviewLength,
		SummaryLength:    cfg.Display.SummaryLength,
		PreviewLength:    cfg.Display.PreviewLength,
		DryRun:           params.DryRun,
		Logger:           logger,
	}

	if params.Resume != "" {
		resume, err := sessionlog.BuildResumePrompt(cfg.Paths.Sessions, params.Resume, cfg.SessionLog.ResumeLines)
		if err != nil {
			return sessionError(params.Resume, err)
		}
		runConfig.Resume = &resume
		if task == "" {
			task = resume.Task
		}
		if runConfig.Model == "" {
			runConfig.Model = resume.Model
		}
	}
	if strings.TrimSpace(task) == "" {
		return cli.Validation("a task is required\n\nRun 'desktop-assist run --help' for usage.")
	}

	custom, err := loadInstructions(params, logger)
	if err != nil {
		return err
	}
	runConfig.CustomInstructions = custom

	catalog, err := toolcatalog.Default()
	if err != nil {
		return cli.Internal("loading tool catalog: %w", err)
	}
	runConfig.ToolCatalog = catalog.Render()

	if !params.DryRun {
		if err := cfg.EnsurePaths(); err != nil {
			return cli.Internal("%w", err)
		}
		if cfg.SessionLog.Enabled {
			runConfig.SessionsDir = cfg.Paths.Sessions
		}
		runConfig.MarkerDir = cfg.MarkerDir()
		reapOrphans(cfg, logger)
	}

	runConfig.Observer = &progress{
		out:     os.Stderr,
		palette: newPalette(os.Stderr, profile),
		task:    task,
		verbose: params.Common.Verbose,
	}

	ctx, force, stop := interruptContext(ctx, logger)
	defer stop()
	runConfig.Force = force

	outcome := agentrunner.Run(ctx, runConfig, task)

	if done, err := params.EmitJSON(newRunResult(outcome)); done {
		if err != nil {
			return err
		}
	} else {
		fmt.Println(outcome.Text)
	}
	if code := outcome.ExitCode(); code != 0 {
		return &cli.ExitError{Code: code}
	}
	return nil
}

// apply overrides configuration values with the flags that were set.
func (params *runParams) apply(cfg *config.Config) {
	if params.Model != "" {
		cfg.Agent.Model = params.Model
	}
	if params.MaxTurns > 0 {
		cfg.Agent.MaxTurns = params.MaxTurns
	}
	if params.Budget > 0 {
		cfg.Agent.MaxBudgetUSD = params.Budget
	}
	if params.Timeout > 0 {
		cfg.Supervisor.Timeout = params.Timeout.String()
	}
	if params.NoLog {
		cfg.SessionLog.Enabled = false
	}
	if params.LogDir != "" {
		cfg.Paths.Sessions = params.LogDir
	}
	if params.Colour != "" {
		cfg.Display.Colour = params.Colour
	}
}

func loadInstructions(params *runParams, logger *slog.Logger) (string, error) {
	if params.NoInstructions {
		return "", nil
	}
	path := params.Instructions
	if path == "" {
		workingDirectory, err := os.Getwd()
		if err != nil {
			return "", cli.Internal("getting working directory: %w", err)
		}
		home, _ := os.UserHomeDir()
		path, err = instructions.Find(workingDirectory, home)
		if err != nil {
			return "", cli.Internal("finding custom instructions: %w", err)
		}
		if path == "" {
			return "", nil
		}
	}
	text, err := instructions.Load(path)
	if errors.Is(err, instructions.ErrTooLarge) || errors.Is(err, os.ErrNotExist) {
		return "", cli.Validation("%w", err)
	}
	if err != nil {
		return "", cli.Internal("%w", err)
	}
	logger.Debug("loaded custom instructions", "path", path, "bytes", len(text))
	return text, nil
}

// reapOrphans cleans up after earlier runs whose supervisor died.
// Failures only cost a warning.
func reapOrphans(cfg *config.Config, logger *slog.Logger) {
	reaped, err := supervisor.ReapOrphans(supervisor.ReapConfig{
		MarkerDir:   cfg.MarkerDir(),
		GracePeriod: cfg.GracePeriod(),
		Logger:      logger,
	})
	if err != nil {
		logger.Warn("reaping orphaned agent processes failed", "path", cfg.MarkerDir(), "error", err)
		return
	}
	if reaped > 0 {
		logger.Info("terminated orphaned agent processes", "count", reaped)
	}
}

func newRunResult(outcome agentrunner.Outcome) runResult {
	result := runResult{
		Kind:        outcome.Kind,
		Text:        outcome.Text,
		IsError:     outcome.IsError,
		Status:      outcome.Status(),
		Steps:       outcome.Steps,
		Elapsed:     outcome.Elapsed.Round(10 * time.Millisecond).Seconds(),
		SessionID:   outcome.SessionID,
		SessionPath: outcome.SessionPath,
		ExitCode:    outcome.ExitCode(),
	}
	if !outcome.Usage.Empty() {
		result.Usage = outcome.Usage
	}
	if outcome.LogError != nil {
		result.LogError = outcome.LogError.Error()
	}
	return result
}

// sessionError maps session log read failures to CLI errors.
func sessionError(id string, err error) error {
	switch {
	case errors.Is(err, sessionlog.ErrNotFound):
		return cli.NotFound("session %q not found", id)
	case errors.Is(err, sessionlog.ErrIncomplete):
		return cli.Conflict("session %q: %w", id, err)
	default:
		return cli.Internal("session %q: %w", id, err)
	}
}
