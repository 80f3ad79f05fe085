// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/desktop-assist/desktop-assist/cmd/desktop-assist/cli"
	"github.com/desktop-assist/desktop-assist/lib/config"
	"github.com/desktop-assist/desktop-assist/lib/sessionlog"
	"github.com/desktop-assist/desktop-assist/lib/streamjson"
)

// sessionFlags locate the session log directory.
type sessionFlags struct {
	Common commonFlags
	LogDir string `flag:"log-dir" desc:"session log directory (default from config)"`
}

func (flags *sessionFlags) directory() (string, *config.Config, error) {
	cfg, err := flags.Common.load()
	if err != nil {
		return "", nil, err
	}
	if flags.LogDir != "" {
		return flags.LogDir, cfg, nil
	}
	return cfg.Paths.Sessions, cfg, nil
}

func sessionsCommand() *cli.Command {
	return &cli.Command{
		Name:    "sessions",
		Summary: "Inspect and archive session logs",
		Subcommands: []*cli.Command{
			sessionsListCommand(),
			sessionsReplayCommand(),
			sessionsResumePromptCommand(),
			sessionsArchiveCommand(),
		},
	}
}

type sessionsListParams struct {
	cli.JSONOutput
	sessionFlags
	Limit int `flag:"limit,n" desc:"show at most N sessions (0 = all)" default:"20"`
}

func sessionsListCommand() *cli.Command {
	var params sessionsListParams
	return &cli.Command{
		Name:    "list",
		Summary: "List recent sessions, newest first",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("list", &params)
		},
		Run: func(_ context.Context, args []string) error {
			if len(args) != 0 {
				return cli.Validation("unexpected arguments: %q", args)
			}
			dir, _, err := params.directory()
			if err != nil {
				return err
			}
			summaries, err := sessionlog.List(dir)
			if err != nil {
				return cli.Internal("%w", err)
			}
			if params.Limit > 0 && len(summaries) > params.Limit {
				summaries = summaries[:params.Limit]
			}
			if done, err := params.EmitJSON(summaries); done {
				return err
			}
			return writeSessionTable(os.Stdout, summaries)
		},
	}
}

func writeSessionTable(w io.Writer, summaries []sessionlog.Summary) error {
	if len(summaries) == 0 {
		_, err := fmt.Fprintln(w, "No sessions.")
		return err
	}
	tw := tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tSTEPS\tELAPSED\tPROMPT")
	for _, summary := range summaries {
		status := summary.Status
		if summary.Outcome != "" {
			status = summary.Outcome
		}
		if summary.Archived {
			status += " (archived)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.1fs\t%s\n",
			summary.ID, status, summary.Steps, summary.ElapsedSeconds, streamjson.Truncate(summary.Prompt, 60))
	}
	return tw.Flush()
}

type sessionsReplayParams struct {
	cli.JSONOutput
	sessionFlags
	Colour string `flag:"colour" desc:"colour: auto, always, or never (default from config)"`
}

func sessionsReplayCommand() *cli.Command {
	var params sessionsReplayParams
	return &cli.Command{
		Name:    "replay",
		Summary: "Print the records of a session",
		Usage:   "desktop-assist sessions replay [flags] <session-id>",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("replay", &params)
		},
		Run: func(_ context.Context, args []string) error {
			if len(args) != 1 {
				return cli.Validation("expected exactly one session id")
			}
			dir, cfg, err := params.directory()
			if err != nil {
				return err
			}
			records, err := sessionlog.Replay(dir, args[0])
			if err != nil {
				return sessionError(args[0], err)
			}
			if done, err := params.EmitJSON(records); done {
				return err
			}
			mode := cfg.Display.Colour
			if params.Colour != "" {
				mode = params.Colour
			}
			profile, err := colourProfile(mode, os.Stdout)
			if err != nil {
				return err
			}
			writeReplay(os.Stdout, newPalette(os.Stdout, profile), records)
			return nil
		},
	}
}

// writeReplay renders records the way a live run's progress looked.
func writeReplay(w io.Writer, colours palette, records []sessionlog.Record) {
	for _, record := range records {
		stamp := colours.dim.Render(record.Timestamp.Local().Format("15:04:05"))
		switch record.Event {
		case sessionlog.EventStart:
			fmt.Fprintf(w, "%s %s %s\n", stamp, colours.bold.Render("start"), colours.step.Render(record.Prompt))
			if record.Model != "" {
				fmt.Fprintf(w, "         model: %s\n", record.Model)
			}
		case sessionlog.EventResume:
			fmt.Fprintf(w, "%s %s from %s\n", stamp, colours.bold.Render("resume"), record.PreviousSession)
		case sessionlog.EventToolCall:
			fmt.Fprintf(w, "%s %s %s: %s\n", stamp,
				colours.step.Render(fmt.Sprintf("[%d]", record.Step)),
				colours.bold.Render(record.Tool),
				colours.dim.Render(streamjson.Truncate(record.Command, 120)))
		case sessionlog.EventToolResult:
			elapsed := ""
			if record.ElapsedSeconds != nil {
				elapsed = colours.dim.Render(fmt.Sprintf(" (%.1fs)", *record.ElapsedSeconds))
			}
			if record.IsError != nil && *record.IsError {
				fmt.Fprintf(w, "%s     %s%s: %s\n", stamp, colours.failure.Render("x error"), elapsed,
					colours.dim.Render(streamjson.Truncate(record.OutputPreview, 200)))
			} else {
				fmt.Fprintf(w, "%s     %s%s\n", stamp, colours.ok.Render("done"), elapsed)
			}
		case sessionlog.EventText:
			fmt.Fprintf(w, "%s   %s\n", stamp, colours.dim.Render(streamjson.Truncate(record.Text, 300)))
		case sessionlog.EventDone:
			steps := 0
			if record.Steps != nil {
				steps = *record.Steps
			}
			elapsed := 0.0
			if record.ElapsedSeconds != nil {
				elapsed = *record.ElapsedSeconds
			}
			status := colours.ok.Render(record.Status)
			if record.Status != sessionlog.StatusDone {
				status = colours.warn.Render(record.Status)
			}
			fmt.Fprintf(w, "%s %s %s (%s, %.1fs)\n", stamp, colours.bold.Render("done"), status, plural(steps, "tool call"), elapsed)
			if record.Usage != nil {
				if usage := streamjson.FormatUsage(*record.Usage); usage != "" {
					fmt.Fprintf(w, "         %s\n", colours.dim.Render(usage))
				}
			}
			if record.ResultPreview != "" {
				fmt.Fprintf(w, "         %s\n", record.ResultPreview)
			}
		}
	}
}

type sessionsResumePromptParams struct {
	sessionFlags
	Lines int `flag:"lines" desc:"transcript lines to include (default from config)"`
}

func sessionsResumePromptCommand() *cli.Command {
	var params sessionsResumePromptParams
	return &cli.Command{
		Name:    "resume-prompt",
		Summary: "Print the continuation instructions for a session",
		Usage:   "desktop-assist sessions resume-prompt [flags] <session-id>",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("resume-prompt", &params)
		},
		Run: func(_ context.Context, args []string) error {
			if len(args) != 1 {
				return cli.Validation("expected exactly one session id")
			}
			dir, cfg, err := params.directory()
			if err != nil {
				return err
			}
			lines := cfg.SessionLog.ResumeLines
			if params.Lines > 0 {
				lines = params.Lines
			}
			resume, err := sessionlog.BuildResumePrompt(dir, args[0], lines)
			if err != nil {
				return sessionError(args[0], err)
			}
			fmt.Print(resume.Prompt)
			return nil
		},
	}
}

type sessionsArchiveParams struct {
	cli.JSONOutput
	sessionFlags
	Compression string `flag:"compression" desc:"zstd or lz4" default:"zstd"`
	AllComplete bool   `flag:"all-complete" desc:"archive every completed session"`
	Force       bool   `flag:"force" desc:"archive sessions without a done record"`
}

type archiveResult struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

func sessionsArchiveCommand() *cli.Command {
	var params sessionsArchiveParams
	return &cli.Command{
		Name:    "archive",
		Summary: "Compress completed session logs",
		Description: `Compress session logs. The plain log is removed once the archive
is on disk. Archived sessions remain readable by list, replay, and
resume-prompt. Sessions without a done record (still running, or
killed) are refused unless --force is given.`,
		Usage: "desktop-assist sessions archive [flags] <session-id>... | --all-complete",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("archive", &params)
		},
		Run: func(_ context.Context, args []string) error {
			compression, err := sessionlog.ParseCompression(params.Compression)
			if err != nil || compression == sessionlog.CompressionNone {
				return cli.Validation("invalid --compression %q: want zstd or lz4", params.Compression)
			}
			dir, _, err := params.directory()
			if err != nil {
				return err
			}

			ids := args
			if params.AllComplete {
				if len(args) > 0 {
					return cli.Validation("--all-complete takes no session ids")
				}
				summaries, err := sessionlog.List(dir)
				if err != nil {
					return cli.Internal("%w", err)
				}
				for _, summary := range summaries {
					if summary.Status == sessionlog.ListStatusDone && !summary.Archived {
						ids = append(ids, summary.ID)
					}
				}
			} else if len(ids) == 0 {
				return cli.Validation("expected session ids or --all-complete")
			}

			var archived []archiveResult
			for _, id := range ids {
				path, err := sessionlog.Archive(dir, id, compression, params.Force)
				if err != nil {
					return sessionError(id, err)
				}
				archived = append(archived, archiveResult{ID: id, Path: path})
			}
			if done, err := params.EmitJSON(archived); done {
				return err
			}
			for _, result := range archived {
				fmt.Println(result.Path)
			}
			return nil
		},
	}
}
