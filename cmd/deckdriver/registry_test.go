package main

import (
	"testing"
	"time"
)

// TestDimmerRegistry_GetUnknown tests that unknown ids return nil
func TestDimmerRegistry_GetUnknown(t *testing.T) {
	r := NewDimmerRegistry()
	if d := r.Get("nope"); d != nil {
		t.Errorf("expected nil for unknown device, got %v", d)
	}
}

// TestDimmerRegistry_InsertGetRemove tests the basic lifecycle
func TestDimmerRegistry_InsertGetRemove(t *testing.T) {
	r := NewDimmerRegistry()
	sched := newFakeScheduler()
	d := NewDimmer(5, 50, sched, func(int) {})

	r.Insert("deck1", d)
	if r.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", r.Len())
	}
	if got := r.Get("deck1"); got != d {
		t.Fatalf("Get returned a different dimmer")
	}

	r.Remove("deck1")
	if r.Len() != 0 {
		t.Fatalf("expected 0 entries after Remove, got %d", r.Len())
	}
	if got := r.Get("deck1"); got != nil {
		t.Errorf("expected nil after Remove, got %v", got)
	}

	// Removing again is harmless.
	r.Remove("deck1")
}

// TestDimmerRegistry_RemoveHaltsTimers tests that a removed dimmer's
// pending timers never fire
func TestDimmerRegistry_RemoveHaltsTimers(t *testing.T) {
	r := NewDimmerRegistry()
	sched := newFakeScheduler()
	rec := &levelRecorder{}
	d := NewDimmer(5, 50, sched, rec.record)
	d.Reset()

	r.Insert("deck1", d)
	r.Remove("deck1")

	sched.advance(time.Minute)
	if len(rec.levels) != 0 {
		t.Errorf("removed dimmer must not fire, got %v", rec.levels)
	}
}

// TestDimmerRegistry_InsertReplacesStaleEntry tests replacement on a
// missed disconnect
func TestDimmerRegistry_InsertReplacesStaleEntry(t *testing.T) {
	r := NewDimmerRegistry()
	sched := newFakeScheduler()

	staleRec := &levelRecorder{}
	stale := NewDimmer(5, 50, sched, staleRec.record)
	stale.Reset()
	r.Insert("deck1", stale)

	freshRec := &levelRecorder{}
	fresh := NewDimmer(5, 50, sched, freshRec.record)
	fresh.Reset()
	r.Insert("deck1", fresh)

	if r.Len() != 1 {
		t.Fatalf("expected 1 entry after replacement, got %d", r.Len())
	}
	if got := r.Get("deck1"); got != fresh {
		t.Fatalf("expected the fresh dimmer to win")
	}

	// The stale dimmer was halted; only the fresh one dims.
	sched.advance(5 * time.Second)
	if len(staleRec.levels) != 0 {
		t.Errorf("stale dimmer must be inert, got %v", staleRec.levels)
	}
	if got, _ := freshRec.last(); got != 49 {
		t.Errorf("expected fresh dimmer to step, got %v", freshRec.levels)
	}
}
