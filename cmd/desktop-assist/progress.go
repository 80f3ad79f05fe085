// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/desktop-assist/desktop-assist/cmd/desktop-assist/cli"
	"github.com/desktop-assist/desktop-assist/lib/agentrunner"
	"github.com/desktop-assist/desktop-assist/lib/streamjson"
)

// verbosePreview bounds commands and text echoed with --verbose.
const verbosePreview = 300

// colourProfile resolves a --colour mode for output.
func colourProfile(mode string, output *os.File) (termenv.Profile, error) {
	switch mode {
	case "never":
		return termenv.Ascii, nil
	case "always":
		return termenv.ANSI, nil
	case "", "auto":
		return termenv.NewOutput(output).EnvColorProfile(), nil
	default:
		return termenv.Ascii, cli.Validation("invalid --colour %q: want auto, always, or never", mode)
	}
}

// palette holds the progress styles for one output.
type palette struct {
	step    lipgloss.Style
	bold    lipgloss.Style
	dim     lipgloss.Style
	ok      lipgloss.Style
	warn    lipgloss.Style
	failure lipgloss.Style
}

func newPalette(w io.Writer, profile termenv.Profile) palette {
	renderer := lipgloss.NewRenderer(w, termenv.WithProfile(profile))
	renderer.SetColorProfile(profile)
	return palette{
		step:    renderer.NewStyle().Foreground(lipgloss.Color("6")),
		bold:    renderer.NewStyle().Bold(true),
		dim:     renderer.NewStyle().Faint(true),
		ok:      renderer.NewStyle().Foreground(lipgloss.Color("2")),
		warn:    renderer.NewStyle().Foreground(lipgloss.Color("3")),
		failure: renderer.NewStyle().Foreground(lipgloss.Color("1")),
	}
}

// progress renders a run for a person watching the terminal. It
// implements agentrunner.Observer.
type progress struct {
	out     io.Writer
	palette palette
	task    string
	verbose bool
}

var _ agentrunner.Observer = (*progress)(nil)

func (p *progress) printf(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}

func (p *progress) Started(sessionID, sessionPath string) {
	p.printf("%s %s\n", p.palette.bold.Render("desktop-assist"), p.palette.dim.Render("starting agent..."))
	p.printf("  prompt: %s\n", p.palette.step.Render(p.task))
}

func (p *progress) Event(event streamjson.Event) {
	switch event.Kind {
	case streamjson.KindToolCall:
		call := event.ToolCall
		p.printf("\n%s %s: %s\n",
			p.palette.step.Render(fmt.Sprintf("[%d]", call.Step)),
			p.palette.bold.Render(call.Name),
			p.palette.dim.Render(call.Summary))
		if p.verbose && call.Detail != "" && call.Name == "Bash" {
			p.printf("    %s\n", p.palette.dim.Render("$ "+streamjson.Truncate(call.Detail, verbosePreview)))
		}

	case streamjson.KindToolResult:
		result := event.ToolResult
		elapsed := ""
		if result.Timed {
			elapsed = " " + p.palette.dim.Render(fmt.Sprintf("(%.1fs)", result.Elapsed.Seconds()))
		}
		if result.IsError {
			p.printf("    %s%s: %s\n", p.palette.failure.Render("x error"), elapsed, p.palette.dim.Render(result.Preview))
			return
		}
		line := "    " + p.palette.ok.Render("done") + elapsed
		if p.verbose && result.Preview != "" {
			line += " " + p.palette.dim.Render(result.Preview)
		}
		p.printf("%s\n", line)

	case streamjson.KindText:
		if p.verbose {
			p.printf("  %s\n", p.palette.dim.Render(streamjson.Truncate(event.Text.Text, verbosePreview)))
		}

	case streamjson.KindUnparseable:
		if p.verbose {
			p.printf("%s %s\n", p.palette.dim.Render("[stream]"), event.Unparseable.Raw)
		}
	}
}

func (p *progress) Finished(outcome agentrunner.Outcome) {
	switch outcome.Kind {
	case agentrunner.KindDryRun, agentrunner.KindLaunchFailed:
		// Nothing ran; the outcome text says why.
		return
	case agentrunner.KindEmpty, agentrunner.KindUnexpectedExit, agentrunner.KindInternal:
		p.printf("\n%s (%s, %.1fs)\n", p.palette.failure.Render("failed"), plural(outcome.Steps, "tool call"), outcome.Elapsed.Seconds())
	case agentrunner.KindCancelled:
		p.printf("\n%s agent stopped.\n", p.palette.warn.Render("interrupted"))
	case agentrunner.KindTimedOut:
		p.printf("\n%s after %s.\n", p.palette.warn.Render("timed out"), outcome.Elapsed.Round(100*time.Millisecond))
	default:
		p.printf("\n%s (%s, %.1fs)\n", p.palette.ok.Render("done"), plural(outcome.Steps, "tool call"), outcome.Elapsed.Seconds())
	}
	if usage := streamjson.FormatUsage(outcome.Usage); usage != "" {
		p.printf("  %s\n", p.palette.dim.Render(usage))
	}
	if outcome.SessionPath != "" {
		p.printf("  session log: %s\n", p.palette.dim.Render(outcome.SessionPath))
	}
	if outcome.LogError != nil {
		p.printf("  %s %v\n", p.palette.warn.Render("session log incomplete:"), outcome.LogError)
	}
}

func plural(count int, noun string) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, noun)
	}
	return fmt.Sprintf("%d %ss", count, noun)
}
