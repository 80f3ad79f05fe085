// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

package watchdog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Extension is the file extension of marker files.
const Extension = ".json"

// DefaultMaxAge is the age beyond which a marker is considered stale.
const DefaultMaxAge = 24 * time.Hour

// Marker records one in-flight run.
type Marker struct {
	// SessionID names the run; the marker file is <SessionID>.json.
	SessionID string `json:"session_id"`

	// SupervisorPID is the pid of the process supervising the child.
	// While it is alive the child is not an orphan.
	SupervisorPID int `json:"supervisor_pid"`

	// ChildPID and ProcessGroup identify the child. The child leads
	// its own group, so they are normally equal.
	ChildPID     int `json:"child_pid"`
	ProcessGroup int `json:"process_group"`

	// Binary is the resolved path of the child executable, for
	// diagnostics.
	Binary string `json:"binary"`

	// Timestamp is when the child was started.
	Timestamp time.Time `json:"timestamp"`
}

// Path returns the marker path for sessionID inside dir.
func Path(dir, sessionID string) string {
	return filepath.Join(dir, sessionID+Extension)
}

// Write atomically writes a marker file. The file is written to a
// temporary location in the same directory, fsynced, and renamed into
// place. The parent directory must already exist.
func Write(path string, marker Marker) error {
	data, err := json.MarshalIndent(marker, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling run marker: %w", err)
	}
	data = append(data, '\n')

	temporaryPath := path + ".tmp"

	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating temporary run marker: %w", err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("writing temporary run marker: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("syncing temporary run marker: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing temporary run marker: %w", err)
	}

	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("renaming run marker into place: %w", err)
	}

	parentDirectory, err := os.Open(filepath.Dir(path))
	if err == nil {
		parentDirectory.Sync()
		parentDirectory.Close()
	}
	return nil
}

// Read reads and parses a marker file. When the file does not exist,
// the returned error wraps fs.ErrNotExist.
func Read(path string) (Marker, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Marker{}, err
	}

	var marker Marker
	if err := json.Unmarshal(data, &marker); err != nil {
		return Marker{}, fmt.Errorf("parsing run marker %s: %w", path, err)
	}
	return marker, nil
}

// Check reads a marker and reports whether it is recent enough to act
// on: its Timestamp is within maxAge of now. A missing or stale marker
// returns false with a nil error; other failures are returned so the
// caller can tell "no marker" from "marker exists but unreadable".
func Check(path string, maxAge time.Duration, now time.Time) (Marker, bool, error) {
	marker, err := Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Marker{}, false, nil
		}
		return Marker{}, false, err
	}
	if now.Sub(marker.Timestamp) > maxAge {
		return Marker{}, false, nil
	}
	return marker, true, nil
}

// Clear removes a marker file. Idempotent: returns nil when the file
// does not exist.
func Clear(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing run marker: %w", err)
	}
	return nil
}

// Scan returns the marker paths in dir, sorted. Temporary files from an
// interrupted Write are not included. A missing directory yields no
// paths.
func Scan(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading markers directory %q: %w", dir, err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), Extension) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
