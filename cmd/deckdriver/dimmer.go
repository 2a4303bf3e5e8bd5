package main

import (
	"sync"
	"time"
)

// ============================================================================
// Display dimmer
// ============================================================================
//
// One Dimmer owns the brightness of one deck. After a period without
// interaction it ramps the display down to black, one percent every
// rampInterval, and restores the configured level the moment something
// happens. Restoring is signalled to the caller so a keypress that woke
// the display can be swallowed instead of firing its actions.
//
// The key event worker and the timer scheduler both call into a Dimmer,
// so every operation (including the tick callbacks) takes the instance
// mutex. Cancelled timers may still have a callback in flight; the gen
// counter makes those late callbacks no-ops.
// ============================================================================

// Dimmer fades a deck's display to black after a period of inactivity
// and restores it on interaction.
type Dimmer struct {
	mu sync.Mutex

	// timeout is the idle period before a ramp starts. Zero disables
	// automatic dimming.
	timeout time.Duration

	// brightness is the normal level restored on wake.
	brightness int

	// current is the level most recently pushed to the callback.
	current int

	stopped bool

	sched     scheduler
	idleTimer timer
	rampTimer timer

	// gen invalidates in-flight timer callbacks whenever the timers are
	// (re)armed or cancelled.
	gen uint64

	// callback receives every brightness change. It runs synchronously
	// with the dimmer lock held and must not call back into the Dimmer.
	callback func(level int)
}

// NewDimmer constructs a dimmer for one deck. The caller must Reset() it
// to arm the idle countdown; until then no timers run.
func NewDimmer(timeoutSeconds int, brightness int, sched scheduler, callback func(level int)) *Dimmer {
	return &Dimmer{
		timeout:    time.Duration(timeoutSeconds) * time.Second,
		brightness: brightness,
		current:    brightness,
		sched:      sched,
		callback:   callback,
	}
}

// Reset cancels any countdown or ramp in progress, arms a fresh idle
// countdown and restores normal brightness. It reports whether the call
// actually woke the display, i.e. whether brightness was below normal.
// Reset always clears a Stop.
func (d *Dimmer) Reset() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = false
	d.cancelTimersLocked()

	if d.timeout > 0 {
		gen := d.gen
		d.idleTimer = d.sched.After(d.timeout, func() { d.idleExpired(gen) })
	}

	if d.current != d.brightness {
		d.callback(d.brightness)
		d.current = d.brightness
		return true
	}
	return false
}

// Stop cancels all timers, forces the display back to normal brightness
// and suspends the dimmer. Dim is a no-op while stopped; Reset resumes
// normal operation.
func (d *Dimmer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cancelTimersLocked()
	d.current = d.brightness
	d.callback(d.brightness)
	d.stopped = true
}

// Dim manually starts a ramp without waiting for the idle countdown.
// With toggle set, calling it on a fully dimmed display wakes it instead,
// so a single tray action can do both.
func (d *Dimmer) Dim(toggle bool) {
	d.mu.Lock()

	if d.stopped {
		d.mu.Unlock()
		return
	}

	if toggle && d.current == 0 {
		d.mu.Unlock()
		// Reset takes the lock itself.
		d.Reset()
		return
	}

	defer d.mu.Unlock()

	if d.idleTimer != nil {
		// The countdown is moot now; stop it. Stop can be too late, with
		// the expiry callback already blocked on our lock, so bump gen to
		// strand that callback as well.
		d.gen++
		d.idleTimer.Stop()
		d.idleTimer = nil

		// Only start stepping down if a ramp is not already running and
		// there is brightness left to take away.
		if d.rampTimer == nil && d.current != 0 {
			d.stepLocked()
		}
	}
}

// SetBrightness changes the normal (restore-to) level. Callers follow up
// with Reset so the new level takes effect as the woken baseline.
func (d *Dimmer) SetBrightness(level int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.brightness = level
}

// SetTimeout changes the idle period. Callers follow up with Reset to
// re-arm the countdown with the new value; zero disables auto-dim on the
// next Reset.
func (d *Dimmer) SetTimeout(seconds int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.timeout = time.Duration(seconds) * time.Second
}

// Brightness returns the normal (restore-to) level.
func (d *Dimmer) Brightness() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.brightness
}

// halt cancels all timers without touching the display. Used when the
// device behind the callback is already gone.
func (d *Dimmer) halt() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelTimersLocked()
	d.stopped = true
}

// cancelTimersLocked stops both timers and invalidates their callbacks.
func (d *Dimmer) cancelTimersLocked() {
	d.gen++
	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}
	if d.rampTimer != nil {
		d.rampTimer.Stop()
		d.rampTimer = nil
	}
}

// idleExpired fires when the idle countdown elapses and begins the ramp.
func (d *Dimmer) idleExpired(gen uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if gen != d.gen {
		return
	}
	d.idleTimer = nil
	d.stepLocked()
}

// stepLocked takes one step down the ramp and schedules the next one.
// At zero the ramp simply ends; only Reset brings the level back up.
func (d *Dimmer) stepLocked() {
	if d.current > 0 {
		d.current--
		d.callback(d.current)
		gen := d.gen
		d.rampTimer = d.sched.After(rampInterval, func() { d.rampTick(gen) })
	} else {
		d.rampTimer = nil
	}
}

func (d *Dimmer) rampTick(gen uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if gen != d.gen {
		return
	}
	d.stepLocked()
}
