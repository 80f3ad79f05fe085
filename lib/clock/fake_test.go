// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestFakeNowStandsStill(t *testing.T) {
	t.Parallel()
	clock := Fake(epoch)
	if got := clock.Now(); !got.Equal(epoch) {
		t.Fatalf("Now() = %v, want %v", got, epoch)
	}
	clock.Advance(1500 * time.Millisecond)
	if got := Since(clock, epoch); got != 1500*time.Millisecond {
		t.Fatalf("Since = %v, want 1.5s", got)
	}
}

func TestFakeAfterFiresOnlyAtDeadline(t *testing.T) {
	t.Parallel()
	clock := Fake(epoch)
	channel := clock.After(3 * time.Second)

	clock.Advance(2 * time.Second)
	select {
	case <-channel:
		t.Fatal("After fired before its deadline")
	default:
	}

	clock.Advance(time.Second)
	select {
	case fired := <-channel:
		if !fired.Equal(epoch.Add(3 * time.Second)) {
			t.Errorf("fired at %v, want %v", fired, epoch.Add(3*time.Second))
		}
	default:
		t.Fatal("After did not fire at its deadline")
	}
	if clock.PendingCount() != 0 {
		t.Errorf("PendingCount = %d, want 0", clock.PendingCount())
	}
}

func TestFakeAfterNonPositive(t *testing.T) {
	t.Parallel()
	clock := Fake(epoch)
	select {
	case <-clock.After(0):
	default:
		t.Fatal("After(0) should fire immediately")
	}
}

func TestFakeWaitForTimers(t *testing.T) {
	t.Parallel()
	clock := Fake(epoch)
	done := make(chan struct{})
	go func() {
		<-clock.After(time.Minute)
		close(done)
	}()

	clock.WaitForTimers(1)
	clock.Advance(time.Minute)
	<-done
}
