// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/desktop-assist/desktop-assist/cmd/desktop-assist/cli"
	"github.com/desktop-assist/desktop-assist/lib/toolcatalog"
	"github.com/desktop-assist/desktop-assist/lib/version"
)

type toolsParams struct {
	cli.JSONOutput
}

func toolsCommand() *cli.Command {
	var params toolsParams
	return &cli.Command{
		Name:    "tools",
		Summary: "Show the automation helpers offered to the agent",
		Usage:   "desktop-assist tools [flags] [module.function]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("tools", &params)
		},
		Run: func(_ context.Context, args []string) error {
			catalog, err := toolcatalog.Default()
			if err != nil {
				return cli.Internal("loading tool catalog: %w", err)
			}
			switch len(args) {
			case 0:
				if done, err := params.EmitJSON(catalog); done {
					return err
				}
				fmt.Fprintf(os.Stdout, "%d helpers:\n%s\n", catalog.Count(), catalog.Render())
				return nil
			case 1:
				function, ok := catalog.Lookup(args[0])
				if !ok {
					return cli.NotFound("no helper named %q (expected module.function)", args[0])
				}
				if done, err := params.EmitJSON(function); done {
					return err
				}
				module, _, _ := strings.Cut(args[0], ".")
				fmt.Fprintf(os.Stdout, "%s\n  %s\n", function.Signature(module), function.Description)
				return nil
			default:
				return cli.Validation("expected at most one helper name")
			}
		},
	}
}


func versionCommand() *cli.Command {
	return &cli.Command{
		Name:    "version",
		Summary: "Print version information",
		Run: func(context.Context, []string) error {
			fmt.Println("desktop-assist " + version.Full())
			return nil
		},
	}
}
