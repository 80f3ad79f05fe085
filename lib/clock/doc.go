// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts the time operations the supervisor and the
// stream decoder depend on, so tests can drive timeouts, grace periods,
// and tool-call elapsed times deterministically.
//
// Production code injects [Real]; tests inject [Fake] and move time with
// [FakeClock.Advance]. [FakeClock.WaitForTimers] closes the race between
// a goroutine registering a timer and the test advancing past it.
package clock
