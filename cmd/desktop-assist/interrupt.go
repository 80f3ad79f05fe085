// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// interruptContext returns a context cancelled by the first SIGINT or
// SIGTERM and a channel closed by the second. Cancellation starts the
// agent's graceful termination; the second signal skips the grace
// period. stop releases the signal handler.
func interruptContext(parent context.Context, logger *slog.Logger) (ctx context.Context, force <-chan struct{}, stop func()) {
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	ctx, force, release := watchInterrupts(parent, signals, logger)
	return ctx, force, func() {
		signal.Stop(signals)
		release()
	}
}

func watchInterrupts(parent context.Context, signals <-chan os.Signal, logger *slog.Logger) (context.Context, <-chan struct{}, func()) {
	ctx, cancel := context.WithCancel(parent)
	force := make(chan struct{})
	done := make(chan struct{})

	go func() {
		received := 0
		for {
			select {
			case sig := <-signals:
				received++
				if received == 1 {
					logger.Info("stopping agent, interrupt again to kill it", "signal", sig.String())
					cancel()
					continue
				}
				logger.Warn("killing agent", "signal", sig.String())
				close(force)
				return
			case <-done:
				return
			}
		}
	}()

	return ctx, force, func() {
		close(done)
		cancel()
	}
}
