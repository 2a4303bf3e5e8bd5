package main

import "time"

// scheduler abstracts single-shot cancellable timers so the dimmer can be
// driven by a fake clock in tests. The production implementation sits on
// time.AfterFunc; nothing here assumes a GUI event loop.
type scheduler interface {
	// After schedules fn to run once after d on the scheduler's own
	// goroutine. The returned timer can be stopped before it fires.
	After(d time.Duration, fn func()) timer
}

// timer is a handle to a scheduled callback.
type timer interface {
	// Stop cancels the timer. It reports whether the callback was
	// prevented from running. A false return means the callback already
	// fired or is in flight; callers that care must guard with their own
	// generation check.
	Stop() bool
}

// wallScheduler is the production scheduler backed by the runtime timers.
type wallScheduler struct{}

func (wallScheduler) After(d time.Duration, fn func()) timer {
	return wallTimer{time.AfterFunc(d, fn)}
}

type wallTimer struct {
	t *time.Timer
}

func (w wallTimer) Stop() bool { return w.t.Stop() }
