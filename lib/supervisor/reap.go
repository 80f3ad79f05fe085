// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"log/slog"
	"os"
	"time"

	"github.com/desktop-assist/desktop-assist/lib/clock"
	"github.com/desktop-assist/desktop-assist/lib/watchdog"
)

// reapPollInterval is how often ReapOrphans re-checks a signalled group.
const reapPollInterval = 100 * time.Millisecond

// ReapConfig configures ReapOrphans.
type ReapConfig struct {
	// MarkerDir is the directory run markers are written to.
	MarkerDir string

	// MaxAge discards older markers without signalling anything.
	// Defaults to watchdog.DefaultMaxAge.
	MaxAge time.Duration

	// GracePeriod is the wait between SIGTERM and SIGKILL.
	GracePeriod time.Duration

	Clock  clock.Clock
	Logger *slog.Logger
}

// ReapOrphans terminates the process groups of runs whose supervisor
// died without cleaning up, and clears their markers. Markers of live
// supervisors are left alone; stale or unreadable markers are removed.
// Returns the number of groups that were still alive and got
// terminated.
func ReapOrphans(config ReapConfig) (int, error) {
	if config.MaxAge <= 0 {
		config.MaxAge = watchdog.DefaultMaxAge
	}
	if config.GracePeriod <= 0 {
		config.GracePeriod = DefaultGracePeriod
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	paths, err := watchdog.Scan(config.MarkerDir)
	if err != nil {
		return 0, err
	}

	reaped := 0
	for _, path := range paths {
		marker, fresh, err := watchdog.Check(path, config.MaxAge, config.Clock.Now())
		if err != nil {
			config.Logger.Warn("discarding unreadable run marker", "path", path, "error", err)
			clearMarker(path, config.Logger)
			continue
		}
		if !fresh {
			config.Logger.Debug("discarding stale run marker", "path", path)
			clearMarker(path, config.Logger)
			continue
		}
		if marker.SupervisorPID == os.Getpid() || ProcessAlive(marker.SupervisorPID) {
			continue
		}

		logger := config.Logger.With(
			"session_id", marker.SessionID,
			"process_group", marker.ProcessGroup,
			"supervisor_pid", marker.SupervisorPID,
		)
		if GroupAlive(marker.ProcessGroup) {
			logger.Warn("terminating orphaned agent process group", "binary", marker.Binary)
			terminateGroup(marker.ProcessGroup, config.GracePeriod, config.Clock, logger)
			reaped++
		}
		clearMarker(path, logger)
	}
	return reaped, nil
}

func clearMarker(path string, logger *slog.Logger) {
	if err := watchdog.Clear(path); err != nil {
		logger.Warn("clearing run marker failed", "path", path, "error", err)
	}
}

// terminateGroup escalates on a group we are not the parent of, so
// there is no Wait to observe: liveness is polled with signal 0.
func terminateGroup(pgid int, grace time.Duration, clk clock.Clock, logger *slog.Logger) {
	if err := KillGroup(pgid, signalTerminate); err != nil {
		logger.Warn("sending SIGTERM to orphaned group failed", "error", err)
	}
	deadline := clk.Now().Add(grace)
	for GroupAlive(pgid) && clk.Now().Before(deadline) {
		<-clk.After(reapPollInterval)
	}
	if GroupAlive(pgid) {
		if err := KillGroup(pgid, signalKill); err != nil {
			logger.Warn("sending SIGKILL to orphaned group failed", "error", err)
		}
	}
}
