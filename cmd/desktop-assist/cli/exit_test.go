// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   int
		report bool
	}{
		{"nil", nil, 0, false},
		{"exit error", &ExitError{Code: 124}, 124, false},
		{"wrapped exit error", fmt.Errorf("run: %w", &ExitError{Code: 130}), 130, false},
		{"validation", Validation("bad flag"), 2, true},
		{"not found", NotFound("no session %q", "x"), 2, true},
		{"conflict", Conflict("still running"), 1, true},
		{"internal", Internal("disk"), 1, true},
		{"plain", errors.New("boom"), 1, true},
	}
	for _, test := range tests {
		code, report := ExitCode(test.err)
		if code != test.code || report != test.report {
			t.Errorf("%s: ExitCode = %d, %v; want %d, %v", test.name, code, report, test.code, test.report)
		}
	}
}

func TestToolErrorUnwraps(t *testing.T) {
	sentinel := errors.New("sentinel")
	err := NotFound("session: %w", sentinel)
	if !errors.Is(err, sentinel) {
		t.Error("errors.Is did not reach the wrapped error")
	}
	if err.Error() != "session: sentinel" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestWriteJSON(t *testing.T) {
	var buffer bytes.Buffer
	if err := WriteJSON(&buffer, normalizeNilSlice([]string(nil))); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buffer.String()) != "[]" {
		t.Errorf("nil slice = %q, want []", buffer.String())
	}

	buffer.Reset()
	if err := WriteJSON(&buffer, map[string]string{"command": "a && b <c>"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buffer.String(), `"a && b <c>"`) {
		t.Errorf("output = %q, want HTML characters unescaped", buffer.String())
	}
}

func TestNewLogger(t *testing.T) {
	var buffer bytes.Buffer
	newLogger(&buffer, false, false).Debug("hidden")
	newLogger(&buffer, false, false).Info("shown", "session_id", "x")
	if strings.Contains(buffer.String(), "hidden") {
		t.Error("debug record written without verbose")
	}
	if !strings.Contains(buffer.String(), `"session_id":"x"`) {
		t.Errorf("non-terminal output = %q, want JSON", buffer.String())
	}

	buffer.Reset()
	newLogger(&buffer, true, true).Debug("detail")
	if !strings.Contains(buffer.String(), "msg=detail") {
		t.Errorf("terminal verbose output = %q, want a text debug record", buffer.String())
	}
}
