// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

// desktop-assist runs desktop automation tasks through the agent CLI
// under supervision and manages the session logs they leave behind.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desktop-assist/desktop-assist/cmd/desktop-assist/cli"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:]))
}

func run(ctx context.Context, args []string) int {
	err := root().Execute(ctx, args)
	code, report := cli.ExitCode(err)
	if report {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	return code
}

func root() *cli.Command {
	return &cli.Command{
		Name:        "desktop-assist",
		Description: "Run desktop automation tasks through the agent CLI and inspect their session logs.",
		Subcommands: []*cli.Command{
			runCommand(),
			sessionsCommand(),
			toolsCommand(),
			versionCommand(),
		},
		Examples: []cli.Example{
			{Description: "Run a task", Command: "desktop-assist run 'open the calculator and compute 12*7'"},
			{Description: "Show recent sessions", Command: "desktop-assist sessions list"},
		},
	}
}
