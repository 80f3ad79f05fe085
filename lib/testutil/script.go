// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteScript writes body as an executable /bin/sh script named name in
// a fresh temporary directory and returns its absolute path.
//
//	agent := testutil.WriteScript(t, "claude", `echo '{"type":"result","result":"ok"}'`)
func WriteScript(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	content := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		t.Fatalf("writing script %s: %v", name, err)
	}
	return path
}

// StreamLines renders lines as a shell here-document body that a
// script can cat to stdout, one protocol line per line.
//
//	testutil.WriteScript(t, "claude", "cat <<'EOF'\n"+testutil.StreamLines(a, b)+"EOF")
func StreamLines(lines ...string) string {
	var builder strings.Builder
	for _, line := range lines {
		builder.WriteString(line)
		builder.WriteByte('\n')
	}
	return builder.String()
}
