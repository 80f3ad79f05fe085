// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/spf13/pflag"

	"github.com/desktop-assist/desktop-assist/cmd/desktop-assist/cli"
	"github.com/desktop-assist/desktop-assist/lib/config"
)

// commonFlags are accepted by every command that reads configuration.
type commonFlags struct {
	ConfigPath string
	Verbose    bool
}

func (flags *commonFlags) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&flags.ConfigPath, "config", "",
		"configuration file (default $"+config.EnvironmentVariable+", else built-in defaults)")
	flagSet.BoolVarP(&flags.Verbose, "verbose", "v", false, "show agent text, tool output, and debug logs")
}

// load reads and validates the configuration.
func (flags *commonFlags) load() (*config.Config, error) {
	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		return nil, cli.Validation("%w", err)
	}
	return cfg, nil
}
