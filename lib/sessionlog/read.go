// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

package sessionlog

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNotFound is returned (wrapped) when a session log does not exist.
var ErrNotFound = errors.New("session not found")

// List statuses.
const (
	ListStatusDone       = "done"
	ListStatusIncomplete = "incomplete"
)

// Summary describes one session log for listing.
type Summary struct {
	ID             string  `json:"id"`
	Prompt         string  `json:"prompt"`
	Steps          int     `json:"steps"`
	ElapsedSeconds float64 `json:"elapsed_s"`

	// Status is ListStatusDone when the log has a done record and
	// ListStatusIncomplete otherwise.
	Status string `json:"status"`

	// Outcome is the run status from the done record (StatusDone,
	// StatusInterrupted, ...). Empty for incomplete logs.
	Outcome string `json:"outcome,omitempty"`

	Path     string `json:"path"`
	Archived bool   `json:"archived"`
}

// List summarizes every session log in dir, newest first. A missing
// directory yields an empty list. Lines that do not decode are skipped,
// so a torn final write does not hide a session.
func List(dir string) ([]Summary, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading sessions directory %q: %w", dir, err)
	}

	seen := make(map[string]bool)
	var summaries []Summary
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		id, compression, ok := splitName(entry.Name())
		if !ok || seen[id] {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if compression != CompressionNone {
			// An interrupted archive leaves both files; the plain one
			// is authoritative.
			if _, err := os.Stat(filepath.Join(dir, id+Extension)); err == nil {
				continue
			}
		}
		seen[id] = true
		summaries = append(summaries, summarize(id, path, compression))
	}

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID > summaries[j].ID })
	return summaries, nil
}

func summarize(id, path string, compression Compression) Summary {
	summary := Summary{
		ID:       id,
		Prompt:   "?",
		Status:   ListStatusIncomplete,
		Path:     path,
		Archived: compression != CompressionNone,
	}
	// Unreadable files are listed as incomplete rather than hidden.
	_ = scanRecords(path, compression, func(line []byte) error {
		var record Record
		if json.Unmarshal(line, &record) != nil {
			return nil
		}
		switch record.Event {
		case EventStart:
			summary.Prompt = record.Prompt
		case EventDone:
			summary.Status = ListStatusDone
			summary.Outcome = record.Status
			if record.Steps != nil {
				summary.Steps = *record.Steps
			}
			if record.ElapsedSeconds != nil {
				summary.ElapsedSeconds = *record.ElapsedSeconds
			}
		}
		return nil
	})
	return summary
}

// Replay returns every record of session id in file order. It returns
// an error wrapping ErrNotFound when no log (plain or archived) exists.
// An undecodable final line without a trailing newline is a torn write
// and is dropped; any other undecodable line is an error.
func Replay(dir, id string) ([]Record, error) {
	path, compression, err := Locate(dir, id)
	if err != nil {
		return nil, err
	}

	var records []Record
	lineNumber := 0
	err = scanLines(path, compression, func(line []byte, terminated bool) error {
		lineNumber++
		var record Record
		if err := json.Unmarshal(line, &record); err != nil {
			if !terminated {
				return nil
			}
			return fmt.Errorf("decoding %s line %d: %w", path, lineNumber, err)
		}
		records = append(records, record)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Locate finds the log file for id in dir, preferring the plain file
// over an archive.
func Locate(dir, id string) (string, Compression, error) {
	if err := validateID(id); err != nil {
		return "", CompressionNone, err
	}
	for _, compression := range []Compression{CompressionNone, CompressionZstd, CompressionLZ4} {
		path := filepath.Join(dir, id+Extension+compression.suffix())
		if _, err := os.Stat(path); err == nil {
			return path, compression, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", CompressionNone, fmt.Errorf("checking session log %q: %w", path, err)
		}
	}
	return "", CompressionNone, fmt.Errorf("session %q in %s: %w", id, dir, ErrNotFound)
}

func validateID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("invalid session id %q", id)
	}
	return nil
}

// splitName parses a directory entry name into a session id and the
// compression of the file.
func splitName(name string) (string, Compression, bool) {
	for _, compression := range []Compression{CompressionZstd, CompressionLZ4, CompressionNone} {
		suffix := Extension + compression.suffix()
		if id, ok := strings.CutSuffix(name, suffix); ok && id != "" {
			return id, compression, true
		}
	}
	return "", CompressionNone, false
}

// scanRecords calls handle with every non-blank line of the log.
func scanRecords(path string, compression Compression, handle func(line []byte) error) error {
	return scanLines(path, compression, func(line []byte, _ bool) error {
		return handle(line)
	})
}

// scanLines reads the log line by line without a line-length limit.
// terminated reports whether the line ended with a newline.
func scanLines(path string, compression Compression, handle func(line []byte, terminated bool) error) error {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("opening %s: %w", path, ErrNotFound)
		}
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	source, closeSource, err := compression.reader(file)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer closeSource()

	reader := bufio.NewReader(source)
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			terminated := line[len(line)-1] == '\n'
			trimmed := []byte(strings.TrimSpace(string(line)))
			if len(trimmed) > 0 {
				if handleErr := handle(trimmed, terminated); handleErr != nil {
					return handleErr
				}
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
	}
}
