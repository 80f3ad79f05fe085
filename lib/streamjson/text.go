// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

package streamjson

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Ellipsis marks text that was cut by Truncate.
const Ellipsis = "..."

// Default display budgets, in characters.
const (
	DefaultSummaryLength = 120
	DefaultPreviewLength = 200
)

// Truncate trims surrounding whitespace from text and, if more than
// limit characters remain, keeps the first limit characters followed
// by Ellipsis. A limit <= 0 disables truncation.
func Truncate(text string, limit int) string {
	text = strings.TrimSpace(text)
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	count := 0
	for index := range text {
		if count == limit {
			return text[:index] + Ellipsis
		}
		count++
	}
	return text
}

// snippetBoilerplate are line prefixes dropped from python -c snippets:
// imports, the interpreter line itself, and the lone quote closing the
// -c argument.
var snippetBoilerplate = []string{"from ", "import ", "python", `"`, "'"}

// SummarizeCommand turns a shell command into a one-line summary of at
// most budget characters (plus Ellipsis when cut).
//
// For "python3 -c" style snippets (also "python -c" and any of the
// given interpreter paths), import and quote lines are removed and the
// remaining statements are joined with " ; " so the summary shows which
// helper was called rather than the boilerplate around it.
func SummarizeCommand(command string, budget int, interpreters ...string) string {
	command = strings.TrimSpace(command)
	if isPythonSnippet(command, interpreters) {
		boilerplate := append([]string(nil), snippetBoilerplate...)
		for _, interpreter := range interpreters {
			if interpreter != "" {
				boilerplate = append(boilerplate, interpreter)
			}
		}
		var calls []string
		for _, line := range strings.Split(command, "\n") {
			line = strings.TrimSpace(line)
			if line == "" || hasAnyPrefix(line, boilerplate) {
				continue
			}
			calls = append(calls, line)
		}
		if len(calls) > 0 {
			return Truncate(strings.Join(calls, " ; "), budget)
		}
	}
	return Truncate(command, budget)
}

func isPythonSnippet(command string, interpreters []string) bool {
	if strings.HasPrefix(command, "python3 -c") || strings.HasPrefix(command, "python -c") {
		return true
	}
	for _, interpreter := range interpreters {
		if interpreter != "" && strings.HasPrefix(command, interpreter) {
			return true
		}
	}
	return false
}

func hasAnyPrefix(text string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(text, prefix) {
			return true
		}
	}
	return false
}

// FormatTokenCount renders a token count compactly: values under 1000
// as-is, thousands with one decimal and a "k" suffix, millions with an
// "M" suffix (15200 -> "15.2k").
func FormatTokenCount(tokens int64) string {
	switch {
	case tokens < 1_000:
		return strconv.FormatInt(tokens, 10)
	case tokens < 999_950:
		return fmt.Sprintf("%.1fk", float64(tokens)/1_000)
	default:
		return fmt.Sprintf("%.1fM", float64(tokens)/1_000_000)
	}
}

// FormatUsage renders the reported fields of usage on one line, e.g.
// "$0.0123 · 15.2k in / 1.3k out · 7 turns". Returns "" when nothing
// was reported.
func FormatUsage(usage Usage) string {
	var parts []string
	if usage.CostUSD != nil {
		parts = append(parts, fmt.Sprintf("$%.4f", *usage.CostUSD))
	}
	if usage.InputTokens != nil || usage.OutputTokens != nil {
		tokens := make([]string, 0, 2)
		if usage.InputTokens != nil {
			tokens = append(tokens, FormatTokenCount(*usage.InputTokens)+" in")
		}
		if usage.OutputTokens != nil {
			tokens = append(tokens, FormatTokenCount(*usage.OutputTokens)+" out")
		}
		parts = append(parts, strings.Join(tokens, " / "))
	}
	if usage.NumTurns != nil {
		noun := "turns"
		if *usage.NumTurns == 1 {
			noun = "turn"
		}
		parts = append(parts, fmt.Sprintf("%d %s", *usage.NumTurns, noun))
	}
	return strings.Join(parts, " · ")
}
