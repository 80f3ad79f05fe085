// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

package sessionlog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestArchiveRoundTrip(t *testing.T) {
	t.Parallel()

	for _, compression := range []Compression{CompressionZstd, CompressionLZ4} {
		t.Run(string(compression), func(t *testing.T) {
			t.Parallel()
			dir := t.TempDir()
			id := "20260301_120000_12345678"
			toolLine := `{"event":"tool_call","step":1,"tool":"Bash","tool_id":"t1","command":"` +
				strings.Repeat("ls ", 300) + `","timestamp":"2026-03-01T12:00:01Z"}`
			plain := writeLog(t, dir, id, startLine, toolLine, doneLine)
			before, err := Replay(dir, id)
			if err != nil {
				t.Fatal(err)
			}

			archivePath, err := Archive(dir, id, compression, false)
			if err != nil {
				t.Fatalf("Archive: %v", err)
			}
			if !strings.HasSuffix(archivePath, compression.suffix()) {
				t.Errorf("archive path = %q", archivePath)
			}
			if _, err := os.Stat(plain); !os.IsNotExist(err) {
				t.Errorf("plain log still present after archive (stat error %v)", err)
			}

			after, err := Replay(dir, id)
			if err != nil {
				t.Fatalf("Replay archived: %v", err)
			}
			if len(after) != len(before) || after[1].Command != before[1].Command {
				t.Errorf("archived replay differs: %d records vs %d", len(after), len(before))
			}

			summaries, err := List(dir)
			if err != nil {
				t.Fatal(err)
			}
			if len(summaries) != 1 || !summaries[0].Archived || summaries[0].Status != ListStatusDone {
				t.Errorf("List = %+v, want one archived done session", summaries)
			}

			resume, err := BuildResumePrompt(dir, id, 0)
			if err != nil {
				t.Fatalf("BuildResumePrompt archived: %v", err)
			}
			if resume.Task != "open the calculator" {
				t.Errorf("resume task = %q", resume.Task)
			}
		})
	}
}

func TestArchiveRefusesIncomplete(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	id := "20260301_120000_abcdef01"
	writeLog(t, dir, id, startLine)

	if _, err := Archive(dir, id, CompressionZstd, false); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("Archive error = %v, want ErrIncomplete", err)
	}
	if _, err := os.Stat(filepath.Join(dir, id+Extension)); err != nil {
		t.Errorf("plain log missing after refused archive: %v", err)
	}
	if _, err := Archive(dir, id, CompressionZstd, true); err != nil {
		t.Errorf("forced Archive: %v", err)
	}
}

func TestArchiveNotFound(t *testing.T) {
	t.Parallel()
	if _, err := Archive(t.TempDir(), "20260301_120000_00000000", CompressionLZ4, false); !errors.Is(err, ErrNotFound) {
		t.Errorf("Archive error = %v, want ErrNotFound", err)
	}
}

func TestListPrefersPlainOverPartialArchive(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	id := "20260301_120000_99999999"
	writeLog(t, dir, id, startLine, doneLine)
	if err := os.WriteFile(filepath.Join(dir, id+Extension+".zst"), []byte("not zstd"), 0o600); err != nil {
		t.Fatal(err)
	}

	summaries, err := List(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 1 || summaries[0].Archived {
		t.Errorf("List = %+v, want the single plain log", summaries)
	}
}

func TestParseCompression(t *testing.T) {
	t.Parallel()
	for _, name := range []string{"zstd", "lz4"} {
		if _, err := ParseCompression(name); err != nil {
			t.Errorf("ParseCompression(%q): %v", name, err)
		}
	}
	if _, err := ParseCompression("gzip"); err == nil {
		t.Error("ParseCompression(gzip) succeeded, want error")
	}
}
