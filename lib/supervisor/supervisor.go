// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/desktop-assist/desktop-assist/lib/clock"
	"github.com/desktop-assist/desktop-assist/lib/watchdog"
)

// Defaults for Config.
const (
	DefaultGracePeriod = 3 * time.Second
	DefaultReapTimeout = 2 * time.Second
	DefaultStderrLimit = 64 << 10
)

// LineHandler receives each stdout line, without its trailing newline,
// in the order the child wrote them. Returning true reports the
// terminal event: the handler is not called again and the run moves to
// shutdown, while the remaining stdout is drained and discarded.
type LineHandler func(line string) (stop bool)

// Config describes one supervised child.
type Config struct {
	// Binary is resolved on PATH unless it contains a path separator.
	Binary string
	Args   []string

	// Dir is the working directory. Empty inherits ours.
	Dir string

	// Env is the child environment. Nil inherits ours.
	Env []string

	// Timeout bounds the run. Zero means unbounded.
	Timeout time.Duration

	// GracePeriod is the wait between SIGTERM and SIGKILL.
	GracePeriod time.Duration

	// ReapTimeout bounds the wait after SIGKILL, and the wait for the
	// output readers once the child is gone.
	ReapTimeout time.Duration

	// StderrLimit caps the retained stderr tail, in bytes.
	StderrLimit int

	// Force, when closed, skips the rest of the grace period and kills
	// the group immediately (a second interrupt).
	Force <-chan struct{}

	// MarkerDir, when set, receives a watchdog marker named after
	// SessionID for the lifetime of the child.
	MarkerDir string
	SessionID string

	Clock  clock.Clock
	Logger *slog.Logger
}

func (config *Config) applyDefaults() {
	if config.GracePeriod <= 0 {
		config.GracePeriod = DefaultGracePeriod
	}
	if config.ReapTimeout <= 0 {
		config.ReapTimeout = DefaultReapTimeout
	}
	if config.StderrLimit <= 0 {
		config.StderrLimit = DefaultStderrLimit
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
}

// run holds the per-child state shared by the coordinator and the
// reader goroutines.
type run struct {
	config  Config
	logger  *slog.Logger
	cmd     *exec.Cmd
	pgid    int
	started time.Time

	// waitDone is closed once cmd.Wait has returned.
	waitDone chan struct{}
	waitErr  error

	// protocolDone is closed when the handler stops, stdout reaches
	// EOF, or the handler panics (handlerPanic is set first).
	protocolDone chan struct{}
	handlerPanic any

	// stdoutDone and stderrDone are closed when the readers return.
	stdoutDone chan struct{}
	stderrDone chan struct{}

	stdoutRead  *os.File
	stderrRead  *os.File
	stderr      *tailBuffer
	stdoutBytes int64
	lines       int

	escalated bool
}

// Run starts the child, feeds its stdout to handler, and returns once
// the child and its process group are gone and both readers have
// exited.
//
// The returned error is a *LaunchError when the child could not be
// started (Exit.Status is StatusCrashedLaunch), or reports a handler
// panic. Timeout and cancellation are not errors: they are reported in
// Exit.Status.
func Run(ctx context.Context, config Config, handler LineHandler) (Exit, error) {
	config.applyDefaults()

	path, err := exec.LookPath(config.Binary)
	if err != nil {
		return Exit{Status: StatusCrashedLaunch, ExitCode: -1}, &LaunchError{Binary: config.Binary, Err: err}
	}

	stdoutRead, stdoutWrite, err := os.Pipe()
	if err != nil {
		return Exit{Status: StatusNotStarted, ExitCode: -1}, fmt.Errorf("creating stdout pipe: %w", err)
	}
	stderrRead, stderrWrite, err := os.Pipe()
	if err != nil {
		stdoutRead.Close()
		stdoutWrite.Close()
		return Exit{Status: StatusNotStarted, ExitCode: -1}, fmt.Errorf("creating stderr pipe: %w", err)
	}

	cmd := exec.Command(path, config.Args...)
	cmd.Dir = config.Dir
	cmd.Env = config.Env
	cmd.Stdout = stdoutWrite
	cmd.Stderr = stderrWrite
	setProcessGroup(cmd)

	started := config.Clock.Now()
	startErr := cmd.Start()
	// The child holds its own copies of the write ends; ours must be
	// closed so the readers see EOF when the child (and every
	// grandchild holding the pipe) is gone.
	stdoutWrite.Close()
	stderrWrite.Close()
	if startErr != nil {
		stdoutRead.Close()
		stderrRead.Close()
		return Exit{Status: StatusCrashedLaunch, ExitCode: -1}, &LaunchError{Binary: config.Binary, Err: startErr}
	}

	r := &run{
		config:       config,
		cmd:          cmd,
		pgid:         cmd.Process.Pid,
		started:      started,
		waitDone:     make(chan struct{}),
		protocolDone: make(chan struct{}),
		stdoutDone:   make(chan struct{}),
		stderrDone:   make(chan struct{}),
		stdoutRead:   stdoutRead,
		stderrRead:   stderrRead,
		stderr:       newTailBuffer(config.StderrLimit),
	}
	r.logger = config.Logger.With("pid", r.pgid, "process_group", r.pgid)
	r.logger.Debug("agent process started", "binary", path, "args", len(config.Args))

	markerPath := r.writeMarker(path)

	go func() {
		r.waitErr = cmd.Wait()
		close(r.waitDone)
	}()
	go r.drainStderr()
	go r.readStdout(handler)

	status := r.coordinate(ctx)

	// The child is gone (or unkillable); anything still in its group is
	// an orphaned grandchild.
	if err := KillGroup(r.pgid, signalKill); err != nil {
		r.logger.Warn("final process group kill failed", "error", err)
	}
	r.awaitReaders()

	if markerPath != "" {
		if err := watchdog.Clear(markerPath); err != nil {
			r.logger.Warn("clearing run marker failed", "path", markerPath, "error", err)
		}
	}

	exit := Exit{
		Status:      status,
		ExitCode:    r.exitCode(),
		Stderr:      r.stderr.String(),
		StdoutBytes: r.stdoutBytes,
		Lines:       r.lines,
		PID:         r.pgid,
		Duration:    clock.Since(config.Clock, started),
		Escalated:   r.escalated,
	}
	var exitError *exec.ExitError
	if closed(r.waitDone) && r.waitErr != nil && !errors.As(r.waitErr, &exitError) {
		r.logger.Warn("waiting for agent process failed", "error", r.waitErr)
	}
	r.logger.Debug("agent process ended",
		"status", exit.Status.String(),
		"exit_code", exit.ExitCode,
		"stdout_bytes", exit.StdoutBytes,
		"escalated", exit.Escalated,
	)

	if r.handlerPanic != nil {
		return exit, fmt.Errorf("stdout handler panicked: %v", r.handlerPanic)
	}
	return exit, nil
}

// coordinate blocks on the first of stdout completion, the timeout, or
// cancellation, terminates the group when needed, and returns the final
// status. When completion races with the timeout or cancellation,
// completion wins.
func (r *run) coordinate(ctx context.Context) Status {
	var timeout <-chan time.Time
	if r.config.Timeout > 0 {
		timeout = r.config.Clock.After(r.config.Timeout)
	}

	select {
	case <-r.protocolDone:
		if r.handlerPanic != nil {
			r.logger.Error("stdout handler panicked, terminating agent", "panic", r.handlerPanic)
			r.terminate()
			return StatusFinished
		}
		r.awaitExit(ctx)
		return StatusFinished

	case <-timeout:
		if closed(r.protocolDone) {
			r.awaitExit(ctx)
			return StatusFinished
		}
		r.logger.Warn("agent timed out, terminating", "timeout", r.config.Timeout)
		r.terminate()
		return StatusTimedOut

	case <-ctx.Done():
		if closed(r.protocolDone) {
			r.awaitExit(ctx)
			return StatusFinished
		}
		r.logger.Info("agent run cancelled, terminating", "cause", context.Cause(ctx))
		r.terminate()
		return StatusCancelled
	}
}

// awaitExit waits for a child whose output is complete to exit on its
// own. A child that lingers past the grace period, or a cancellation in
// the meantime, gets the escalating termination.
func (r *run) awaitExit(ctx context.Context) {
	select {
	case <-r.waitDone:
	case <-r.config.Clock.After(r.config.GracePeriod):
		r.logger.Warn("agent still running after its output ended, terminating")
		r.terminate()
	case <-ctx.Done():
		r.terminate()
	}
}

// terminate performs escalating termination: SIGTERM to the group, wait
// up to the grace period, SIGKILL to the group, wait up to the reap
// timeout. It returns early as soon as the child has been reaped.
func (r *run) terminate() {
	if closed(r.waitDone) {
		return
	}
	if err := KillGroup(r.pgid, signalTerminate); err != nil {
		r.logger.Warn("sending SIGTERM to process group failed", "error", err)
	}
	select {
	case <-r.waitDone:
		return
	case <-r.config.Clock.After(r.config.GracePeriod):
		r.logger.Warn("agent ignored SIGTERM, sending SIGKILL", "grace_period", r.config.GracePeriod)
	case <-r.config.Force:
		r.logger.Warn("forced termination requested, sending SIGKILL")
	}

	r.escalated = true
	if err := KillGroup(r.pgid, signalKill); err != nil {
		r.logger.Warn("sending SIGKILL to process group failed", "error", err)
	}
	select {
	case <-r.waitDone:
	case <-r.config.Clock.After(r.config.ReapTimeout):
		r.logger.Error("agent process not reaped after SIGKILL", "reap_timeout", r.config.ReapTimeout)
	}
}

// awaitReaders waits for both readers to return. A reader still blocked
// after the reap timeout is reading a pipe held open by a process that
// escaped the group; closing our read end unblocks it.
func (r *run) awaitReaders() {
	select {
	case <-allClosed(r.stdoutDone, r.stderrDone):
	case <-r.config.Clock.After(r.config.ReapTimeout):
		r.logger.Warn("output pipes still open after the agent exited, closing them")
	}
	r.stdoutRead.Close()
	r.stderrRead.Close()
	<-r.stdoutDone
	<-r.stderrDone
}

// readStdout splits stdout into lines and feeds them to handler until it
// asks to stop, then drains the rest. bufio.Reader is used rather than
// a Scanner so a single very long line (a large tool result) is never
// rejected.
func (r *run) readStdout(handler LineHandler) {
	defer close(r.stdoutDone)

	reader := bufio.NewReaderSize(r.stdoutRead, 64<<10)
	stopped := false
	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			r.stdoutBytes += int64(len(line))
			if !stopped {
				r.lines++
				if r.handle(handler, trimNewline(line)) {
					stopped = true
					close(r.protocolDone)
				}
			}
		}
		if err != nil {
			if err != io.EOF && !errors.Is(err, os.ErrClosed) {
				r.logger.Warn("reading agent stdout failed", "error", err)
			}
			break
		}
		if stopped {
			// Keep draining so the child never blocks on a full pipe
			// while it shuts down.
			written, _ := io.Copy(io.Discard, reader)
			r.stdoutBytes += written
			break
		}
	}
	if !stopped {
		close(r.protocolDone)
	}
}

// handle calls handler, converting a panic into a stop.
func (r *run) handle(handler LineHandler, line string) (stop bool) {
	defer func() {
		if recovered := recover(); recovered != nil {
			r.handlerPanic = recovered
			stop = true
		}
	}()
	return handler(line)
}

func (r *run) drainStderr() {
	defer close(r.stderrDone)
	if _, err := io.Copy(r.stderr, r.stderrRead); err != nil && !errors.Is(err, os.ErrClosed) {
		r.logger.Debug("reading agent stderr failed", "error", err)
	}
}

func (r *run) exitCode() int {
	if !closed(r.waitDone) || r.cmd.ProcessState == nil {
		return -1
	}
	return r.cmd.ProcessState.ExitCode()
}

// writeMarker records the child in the markers directory. Failure only
// costs orphan reaping for this run, so it is logged and ignored.
func (r *run) writeMarker(binary string) string {
	if r.config.MarkerDir == "" || r.config.SessionID == "" {
		return ""
	}
	if err := os.MkdirAll(r.config.MarkerDir, 0o700); err != nil {
		r.logger.Warn("creating markers directory failed", "path", r.config.MarkerDir, "error", err)
		return ""
	}
	path := watchdog.Path(r.config.MarkerDir, r.config.SessionID)
	marker := watchdog.Marker{
		SessionID:     r.config.SessionID,
		SupervisorPID: os.Getpid(),
		ChildPID:      r.pgid,
		ProcessGroup:  r.pgid,
		Binary:        filepath.Clean(binary),
		Timestamp:     r.started.UTC(),
	}
	if err := watchdog.Write(path, marker); err != nil {
		r.logger.Warn("writing run marker failed", "path", path, "error", err)
		return ""
	}
	return path
}

func trimNewline(line string) string {
	return strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
}

func closed(channel <-chan struct{}) bool {
	select {
	case <-channel:
		return true
	default:
		return false
	}
}

// allClosed returns a channel closed once every input channel is.
func allClosed(channels ...<-chan struct{}) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		for _, channel := range channels {
			<-channel
		}
		close(done)
	}()
	return done
}
