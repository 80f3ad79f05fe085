// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command tree framework for the desktop-assist
// binary.
//
// A [Command] names a subcommand, a pflag.FlagSet factory (usually
// built from a tagged params struct with [FlagsFromParams]), and a Run
// function. [Command.Execute] routes positional words to subcommands,
// parses flags, and prints structured help. Unknown commands and flags
// get a "did you mean" suggestion based on edit distance.
//
// Commands report failures as a [ToolError] carrying a category, or as
// an [ExitError] when they have already written their own output and
// only need a particular exit status.
package cli
