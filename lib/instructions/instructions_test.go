// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

package instructions

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// tree returns a resolved temp root with home/project/sub inside it.
func tree(t *testing.T) (root, home, sub string) {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	home = filepath.Join(root, "home")
	sub = filepath.Join(home, "project", "sub")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	return root, home, sub
}

func TestFindNearestWins(t *testing.T) {
	t.Parallel()
	_, home, sub := tree(t)
	writeFile(t, filepath.Join(home, FileName), "home")
	writeFile(t, filepath.Join(home, "project", FileName), "project")

	got, err := Find(sub, home)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if want := filepath.Join(home, "project", FileName); got != want {
		t.Errorf("Find = %q, want %q", got, want)
	}
}

func TestFindHomeIsInclusive(t *testing.T) {
	t.Parallel()
	_, home, sub := tree(t)
	writeFile(t, filepath.Join(home, FileName), "home")

	got, err := Find(sub, home)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(home, FileName); got != want {
		t.Errorf("Find = %q, want %q", got, want)
	}
}

func TestFindStopsAtHome(t *testing.T) {
	t.Parallel()
	root, home, sub := tree(t)
	// Above home: must not be found.
	writeFile(t, filepath.Join(root, FileName), "outside")

	got, err := Find(sub, home)
	if err != nil {
		t.Fatal(err)
	}
	if got != "" {
		t.Errorf("Find = %q, want no file (search must stop at home)", got)
	}
}

func TestFindOutsideHomeReachesRoot(t *testing.T) {
	t.Parallel()
	root, _, sub := tree(t)
	writeFile(t, filepath.Join(root, FileName), "root")

	got, err := Find(sub, filepath.Join(root, "elsewhere"))
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(root, FileName); got != want {
		t.Errorf("Find = %q, want %q", got, want)
	}
}

func TestFindIgnoresDirectories(t *testing.T) {
	t.Parallel()
	_, home, sub := tree(t)
	if err := os.Mkdir(filepath.Join(sub, FileName), 0o755); err != nil {
		t.Fatal(err)
	}
	got, err := Find(sub, home)
	if err != nil || got != "" {
		t.Errorf("Find = %q, %v, want no file", got, err)
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	small := filepath.Join(dir, "small.md")
	writeFile(t, small, "Prefer keyboard shortcuts.")
	got, err := Load(small)
	if err != nil || got != "Prefer keyboard shortcuts." {
		t.Errorf("Load = %q, %v", got, err)
	}

	exact := filepath.Join(dir, "exact.md")
	writeFile(t, exact, strings.Repeat("a", MaxSize))
	if _, err := Load(exact); err != nil {
		t.Errorf("Load at exactly MaxSize: %v", err)
	}

	large := filepath.Join(dir, "large.md")
	writeFile(t, large, strings.Repeat("a", MaxSize+1))
	if _, err := Load(large); !errors.Is(err, ErrTooLarge) {
		t.Errorf("Load error = %v, want ErrTooLarge", err)
	}

	if _, err := Load(filepath.Join(dir, "missing.md")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Load error = %v, want fs.ErrNotExist", err)
	}
}
