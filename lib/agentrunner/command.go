// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

package agentrunner

import (
	"strconv"
	"strings"
)

// BuildArgs returns the agent CLI arguments for task. The task is the
// final positional argument.
func BuildArgs(config Config, task, systemPrompt string) []string {
	args := []string{
		"-p",
		"--output-format", "stream-json",
		"--verbose",
		"--no-session-persistence",
		"--system-prompt", systemPrompt,
	}
	if len(config.AllowedTools) > 0 {
		args = append(args, "--allowedTools")
		args = append(args, config.AllowedTools...)
	}
	args = append(args,
		"--dangerously-skip-permissions",
		"--max-budget-usd", strconv.FormatFloat(config.BudgetUSD, 'f', 2, 64),
	)
	if config.MaxTurns > 0 {
		args = append(args, "--max-turns", strconv.Itoa(config.MaxTurns))
	}
	if config.Model != "" {
		args = append(args, "--model", config.Model)
	}
	return append(args, task)
}

// ShellJoin renders a command line that a POSIX shell would split back
// into binary and args.
func ShellJoin(binary string, args []string) string {
	quoted := make([]string, 0, len(args)+1)
	quoted = append(quoted, shellQuote(binary))
	for _, arg := range args {
		quoted = append(quoted, shellQuote(arg))
	}
	return strings.Join(quoted, " ")
}

func shellQuote(s string) string {
	safe := s != ""
	for _, char := range s {
		if !isShellSafe(char) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	// Single-quote the string, escaping any internal single quotes.
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// isShellSafe reports whether char never needs quoting.
func isShellSafe(char rune) bool {
	switch {
	case char >= 'a' && char <= 'z', char >= 'A' && char <= 'Z', char >= '0' && char <= '9':
		return true
	}
	switch char {
	case '-', '_', '.', '/', ':', '=', '+', ',', '@', '%':
		return true
	}
	return false
}
