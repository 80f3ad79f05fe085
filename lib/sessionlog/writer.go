// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

package sessionlog

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/desktop-assist/desktop-assist/lib/clock"
	"github.com/desktop-assist/desktop-assist/lib/streamjson"
)

// DefaultPreviewLength bounds free-text fields in persisted records.
const DefaultPreviewLength = 500

// Extension is the file extension of a plain session log.
const Extension = ".jsonl"

// idAttempts bounds retries when a generated id collides with an
// existing file.
const idAttempts = 5

// Options configures a Writer.
type Options struct {
	// Clock stamps records and generates session ids. Defaults to
	// clock.Real().
	Clock clock.Clock

	// PreviewLength bounds commands, outputs, assistant text, and the
	// final result. Defaults to DefaultPreviewLength.
	PreviewLength int
}

// Writer appends records to one session log file. It is safe for
// concurrent use, although a run only writes from one goroutine.
type Writer struct {
	id      string
	path    string
	options Options

	mutex   sync.Mutex
	file    *os.File
	encoder *json.Encoder
	closed  bool
}

// NewID returns a session id for a run starting at now:
// YYYYMMDD_HHMMSS_<8 hex>, in UTC.
func NewID(now time.Time) string {
	random := uuid.New()
	return now.UTC().Format("20060102_150405") + "_" + hex.EncodeToString(random[:4])
}

// Create makes dir if needed and creates a new, uniquely named session
// log inside it. The file is created exclusively and is never truncated.
func Create(dir string, options Options) (*Writer, error) {
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.PreviewLength <= 0 {
		options.PreviewLength = DefaultPreviewLength
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating sessions directory %q: %w", dir, err)
	}

	var lastErr error
	for range idAttempts {
		id := NewID(options.Clock.Now())
		path := filepath.Join(dir, id+Extension)
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL|os.O_APPEND, 0o600)
		if errors.Is(err, fs.ErrExist) {
			lastErr = err
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("creating session log %q: %w", path, err)
		}
		encoder := json.NewEncoder(file)
		encoder.SetEscapeHTML(false)
		return &Writer{
			id:      id,
			path:    path,
			options: options,
			file:    file,
			encoder: encoder,
		}, nil
	}
	return nil, fmt.Errorf("creating session log in %q: %w", dir, lastErr)
}

// ID returns the session id.
func (writer *Writer) ID() string { return writer.id }

// Path returns the log file path.
func (writer *Writer) Path() string { return writer.path }

// LogStart records the task the run was started with. A maxTurns of
// zero means unlimited and is omitted.
func (writer *Writer) LogStart(task, model string, maxTurns int) error {
	return writer.write(Record{
		Event:    EventStart,
		Prompt:   task,
		Model:    model,
		MaxTurns: maxTurns,
	})
}

// LogResume records that this run continues previousID.
func (writer *Writer) LogResume(previousID string) error {
	return writer.write(Record{Event: EventResume, PreviousSession: previousID})
}

// LogToolCall records a tool invocation. command may be empty for tools
// without one.
func (writer *Writer) LogToolCall(step int, tool, toolID, command string) error {
	return writer.write(Record{
		Event:   EventToolCall,
		Step:    step,
		Tool:    tool,
		ToolID:  toolID,
		Command: writer.truncate(command),
	})
}

// LogToolResult records a tool outcome. elapsed is nil when the result
// had no matching call.
func (writer *Writer) LogToolResult(step int, toolID string, isError bool, output string, elapsed *time.Duration) error {
	record := Record{
		Event:         EventToolResult,
		Step:          step,
		ToolID:        toolID,
		IsError:       &isError,
		OutputPreview: writer.truncate(output),
	}
	if elapsed != nil {
		record.ElapsedSeconds = seconds(*elapsed)
	}
	return writer.write(record)
}

// LogText records assistant narration.
func (writer *Writer) LogText(text string) error {
	return writer.write(Record{Event: EventText, Text: writer.truncate(text)})
}

// LogDone writes the terminal record. A log without one is reported as
// incomplete.
func (writer *Writer) LogDone(steps int, elapsed time.Duration, status, result string, usage streamjson.Usage) error {
	record := Record{
		Event:          EventDone,
		Steps:          &steps,
		ElapsedSeconds: seconds(elapsed),
		Status:         status,
		ResultPreview:  writer.truncate(result),
	}
	if !usage.Empty() {
		record.Usage = &usage
	}
	return writer.write(record)
}

// Close closes the file. Close is idempotent.
func (writer *Writer) Close() error {
	writer.mutex.Lock()
	defer writer.mutex.Unlock()
	if writer.closed {
		return nil
	}
	writer.closed = true
	return writer.file.Close()
}

func (writer *Writer) truncate(text string) string {
	return streamjson.Truncate(text, writer.options.PreviewLength)
}

func (writer *Writer) write(record Record) error {
	writer.mutex.Lock()
	defer writer.mutex.Unlock()

	if writer.closed {
		return fmt.Errorf("writing %s record to %q: log is closed", record.Event, writer.path)
	}
	record.Timestamp = writer.options.Clock.Now().UTC()
	if err := writer.encoder.Encode(record); err != nil {
		return fmt.Errorf("writing %s record to %q: %w", record.Event, writer.path, err)
	}
	// The record must be on stable storage before the call returns.
	if err := writer.file.Sync(); err != nil {
		return fmt.Errorf("syncing session log %q: %w", writer.path, err)
	}
	return nil
}
