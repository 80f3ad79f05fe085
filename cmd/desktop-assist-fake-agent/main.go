// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

// desktop-assist-fake-agent stands in for the agent CLI. It accepts the
// agent's command line, then plays a script to stdout so the wrapper's
// supervision paths can be exercised without the real agent.
//
// The script is a JSONL file named by DESKTOP_ASSIST_FAKE_SCRIPT. Lines
// are written to stdout verbatim, except directives:
//
//	#sleep <duration>   pause before the next line
//	#stderr <text>      write text to stderr
//	#exit <code>        stop and exit with code
//	#hang               ignore SIGTERM and block until killed
//	#spawn <duration>   start a child that sleeps (in the process group)
//
// Without a script, a short successful run echoing the task is played.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/desktop-assist/desktop-assist/lib/process"
)

const (
	scriptVariable = "DESKTOP_ASSIST_FAKE_SCRIPT"

	// argsVariable names a file that receives the received command
	// line as a JSON array.
	argsVariable = "DESKTOP_ASSIST_FAKE_ARGS"
)

// agentFlags are the agent CLI flags the fake understands.
type agentFlags struct {
	print        bool
	outputFormat string
	verbose      bool
	systemPrompt string
	model        string
	maxTurns     int
	budget       float64
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		process.Fatal(err)
	}
}

type exitCode int

func (code exitCode) Error() string { return fmt.Sprintf("exit %d", int(code)) }
func (code exitCode) ExitCode() int { return int(code) }

func run(args []string, stdout, stderr io.Writer) error {
	task, _, err := parseArgs(args)
	if err != nil {
		return err
	}
	if path := os.Getenv(argsVariable); path != "" {
		data, err := json.Marshal(args)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return fmt.Errorf("recording arguments: %w", err)
		}
	}

	var script io.Reader = strings.NewReader(defaultScript(task))
	if path := os.Getenv(scriptVariable); path != "" {
		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening script: %w", err)
		}
		defer file.Close()
		script = file
	}
	return play(script, stdout, stderr)
}

func parseArgs(args []string) (string, agentFlags, error) {
	var flags agentFlags
	flagSet := pflag.NewFlagSet("fake-agent", pflag.ContinueOnError)
	flagSet.ParseErrorsWhitelist.UnknownFlags = true
	flagSet.SetOutput(io.Discard)
	flagSet.BoolVarP(&flags.print, "print", "p", false, "non-interactive mode")
	flagSet.StringVar(&flags.outputFormat, "output-format", "text", "output format")
	flagSet.BoolVar(&flags.verbose, "verbose", false, "verbose")
	flagSet.StringVar(&flags.systemPrompt, "system-prompt", "", "system prompt")
	flagSet.StringVar(&flags.model, "model", "", "model")
	flagSet.IntVar(&flags.maxTurns, "max-turns", 0, "turn limit")
	flagSet.Float64Var(&flags.budget, "max-budget-usd", 0, "budget")
	flagSet.Bool("no-session-persistence", false, "")
	flagSet.Bool("dangerously-skip-permissions", false, "")
	flagSet.StringSlice("allowedTools", nil, "")
	if err := flagSet.Parse(args); err != nil {
		return "", flags, fmt.Errorf("parsing arguments: %w", err)
	}
	if flags.outputFormat != "stream-json" {
		return "", flags, fmt.Errorf("unsupported --output-format %q", flags.outputFormat)
	}
	// The task is the last positional; tool names after --allowedTools
	// also land in the positionals.
	if flagSet.NArg() == 0 {
		return "", flags, fmt.Errorf("no task given")
	}
	return flagSet.Arg(flagSet.NArg() - 1), flags, nil
}

func defaultScript(task string) string {
	taskJSON, _ := json.Marshal("Fake agent finished: " + task)
	return strings.Join([]string{
		`{"type":"system","subtype":"init"}`,
		`{"type":"assistant","message":{"content":[{"type":"tool_use","id":"fake_1","name":"Bash","input":{"command":"echo fake"}}]}}`,
		`{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"fake_1","content":"fake"}]}}`,
		`{"type":"result","subtype":"success","is_error":false,"result":` + string(taskJSON) + `,"num_turns":1}`,
	}, "\n") + "\n"
}

// play writes script to stdout, acting on directives.
func play(script io.Reader, stdout, stderr io.Writer) error {
	scanner := bufio.NewScanner(script)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		directive, argument, isDirective := parseDirective(line)
		if !isDirective {
			if _, err := fmt.Fprintln(stdout, line); err != nil {
				return err
			}
			continue
		}
		switch directive {
		case "sleep":
			duration, err := time.ParseDuration(argument)
			if err != nil {
				return fmt.Errorf("#sleep: %w", err)
			}
			time.Sleep(duration)
		case "stderr":
			fmt.Fprintln(stderr, argument)
		case "exit":
			code, err := strconv.Atoi(argument)
			if err != nil {
				return fmt.Errorf("#exit: %w", err)
			}
			return exitCode(code)
		case "hang":
			signal.Ignore(syscall.SIGTERM)
			select {}
		case "spawn":
			duration, err := time.ParseDuration(argument)
			if err != nil {
				return fmt.Errorf("#spawn: %w", err)
			}
			seconds := strconv.FormatFloat(duration.Seconds(), 'f', -1, 64)
			if err := exec.Command("sleep", seconds).Start(); err != nil {
				return fmt.Errorf("#spawn: %w", err)
			}
		default:
			return fmt.Errorf("unknown directive #%s", directive)
		}
	}
	return scanner.Err()
}

func parseDirective(line string) (name, argument string, ok bool) {
	if !strings.HasPrefix(line, "#") {
		return "", "", false
	}
	name, argument, _ = strings.Cut(strings.TrimPrefix(line, "#"), " ")
	return name, strings.TrimSpace(argument), true
}
