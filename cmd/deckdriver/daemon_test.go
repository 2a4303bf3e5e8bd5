package main

import (
	"context"
	"testing"
	"time"
)

// daemonFixture wires the full daemon state around a simulated deck.
type daemonFixture struct {
	store    *deckStore
	registry *DimmerRegistry
	sched    *fakeScheduler
	manager  *deckManager
	dp       *Dispatcher
	actions  chan Action
	events   []emittedEvent
}

func newDaemonFixture(t *testing.T) *daemonFixture {
	t.Helper()

	f := &daemonFixture{
		store:    newDeckStore(),
		registry: NewDimmerRegistry(),
		sched:    newFakeScheduler(),
		actions:  make(chan Action, 64),
	}
	f.manager = newDeckManager(f.store, f.registry, f.sched, f.actions, discardLogger())
	f.dp = NewDispatcher(f.store, f.registry, &recordingInjector{}, &mockSpawner{}, f.manager, discardLogger())
	return f
}

func (f *daemonFixture) emit(typ string, data any) {
	f.events = append(f.events, emittedEvent{typ, data})
}

func (f *daemonFixture) apply(act Action) {
	applyAction(act, f.dp, f.store, f.registry, f.manager, f.emit, discardLogger())
}

// TestApplyAction_ConnectAndDisconnect tests the device lifecycle actions
func TestApplyAction_ConnectAndDisconnect(t *testing.T) {
	f := newDaemonFixture(t)

	f.apply(ConnectDevice{Serial: "sim-test"})

	if f.registry.Get("sim-test") == nil {
		t.Fatalf("expected a dimmer for the connected deck")
	}
	if got := f.manager.Serials(); len(got) != 1 || got[0] != "sim-test" {
		t.Fatalf("expected one connected deck, got %v", got)
	}
	if len(f.events) != 1 || f.events[0].typ != "device_connected" {
		t.Fatalf("expected device_connected event, got %+v", f.events)
	}

	f.apply(DisconnectDevice{DeviceID: "sim-test"})

	if f.registry.Get("sim-test") != nil {
		t.Errorf("expected dimmer removed on disconnect")
	}
	if got := f.manager.Serials(); len(got) != 0 {
		t.Errorf("expected no connected decks, got %v", got)
	}
	if f.events[len(f.events)-1].typ != "device_disconnected" {
		t.Errorf("expected device_disconnected event, got %+v", f.events)
	}
}

// TestApplyAction_SetPage tests page changes and their broadcast
func TestApplyAction_SetPage(t *testing.T) {
	f := newDaemonFixture(t)
	f.apply(ConnectDevice{Serial: "sim-test"})

	f.apply(SetPage{DeviceID: "sim-test", Page: 3})

	if got := f.store.Page("sim-test"); got != 3 {
		t.Errorf("expected page 3, got %d", got)
	}
	last := f.events[len(f.events)-1]
	if last.typ != "page_changed" {
		t.Fatalf("expected page_changed, got %q", last.typ)
	}
	if data, ok := last.data.(pageChangedData); !ok || data.Page != 3 {
		t.Errorf("unexpected payload: %+v", last.data)
	}
}

// TestApplyAction_SetBrightness tests the store/device/dimmer update chain
func TestApplyAction_SetBrightness(t *testing.T) {
	f := newDaemonFixture(t)
	f.apply(ConnectDevice{Serial: "sim-test"})

	f.apply(SetBrightness{DeviceID: "sim-test", Level: 140})

	if got := f.store.Brightness("sim-test"); got != 100 {
		t.Errorf("expected clamped brightness 100, got %d", got)
	}
	if got := f.registry.Get("sim-test").Brightness(); got != 100 {
		t.Errorf("expected dimmer level 100, got %d", got)
	}
	if f.events[len(f.events)-1].typ != "brightness_changed" {
		t.Errorf("expected brightness_changed, got %+v", f.events)
	}
}

// TestApplyAction_SetBrightnessUnknownDevice tests that a missing deck
// leaves the store untouched
func TestApplyAction_SetBrightnessUnknownDevice(t *testing.T) {
	f := newDaemonFixture(t)

	f.apply(SetBrightness{DeviceID: "ghost", Level: 40})

	if got := f.store.Brightness("ghost"); got != defaultBrightness {
		t.Errorf("store must not change for an unknown device, got %d", got)
	}
	if len(f.events) != 0 {
		t.Errorf("no events expected, got %+v", f.events)
	}
}

// TestApplyAction_SetDisplayTimeout tests timeout propagation to the
// dimmer
func TestApplyAction_SetDisplayTimeout(t *testing.T) {
	f := newDaemonFixture(t)
	f.apply(ConnectDevice{Serial: "sim-test"})

	f.apply(SetDisplayTimeout{DeviceID: "sim-test", Seconds: 2})

	if got := f.store.DisplayTimeout("sim-test"); got != 2 {
		t.Fatalf("expected timeout 2, got %d", got)
	}

	// The re-armed countdown uses the new timeout.
	f.sched.advance(2 * time.Second)
	if got := f.store.Brightness("sim-test"); got != 100 {
		t.Errorf("stored level must not move during a ramp, got %d", got)
	}
}

// TestApplyAction_DimDisplay tests the manual dim action
func TestApplyAction_DimDisplay(t *testing.T) {
	f := newDaemonFixture(t)
	f.apply(ConnectDevice{Serial: "sim-test"})
	f.apply(SetDisplayTimeout{DeviceID: "sim-test", Seconds: 60})

	f.apply(DimDisplay{DeviceID: "sim-test"})

	// A wake press is consumed: the ramp must have started.
	if !f.registry.Get("sim-test").Reset() {
		t.Errorf("expected the display to be below normal after DimDisplay")
	}

	// Unknown device is a no-op.
	f.apply(DimDisplay{DeviceID: "ghost"})
}

// TestApplyAction_KeyPressedRoutesToDispatcher tests the key event path
func TestApplyAction_KeyPressedRoutesToDispatcher(t *testing.T) {
	f := newDaemonFixture(t)
	f.apply(ConnectDevice{Serial: "sim-test"})
	f.dp.SetEmitter(f.emit)
	f.store.SetButton("sim-test", 0, 0, ButtonConfig{SwitchPage: 2})

	f.apply(KeyPressed{DeviceID: "sim-test", Key: 0, Pressed: true})

	if got := f.store.Page("sim-test"); got != 1 {
		t.Errorf("expected the bound page switch to run, got page %d", got)
	}
}

// TestSnapshotState tests the per-deck snapshot for new WS clients
func TestSnapshotState(t *testing.T) {
	f := newDaemonFixture(t)
	f.apply(ConnectDevice{Serial: "zz-deck"})
	f.apply(ConnectDevice{Serial: "aa-deck"})
	f.apply(SetPage{DeviceID: "zz-deck", Page: 2})

	reply := make(chan StateSnapshot, 1)
	f.apply(RequestStateSnapshot{Reply: reply})

	snap := <-reply
	if len(snap.Decks) != 2 {
		t.Fatalf("expected 2 decks, got %d", len(snap.Decks))
	}
	if snap.Decks[0].DeviceID != "aa-deck" || snap.Decks[1].DeviceID != "zz-deck" {
		t.Errorf("expected sorted serials, got %+v", snap.Decks)
	}
	if snap.Decks[1].Page != 2 {
		t.Errorf("expected zz-deck on page 2, got %+v", snap.Decks[1])
	}
}

// TestRunDaemon_StopsOnContextCancel tests loop shutdown
func TestRunDaemon_StopsOnContextCancel(t *testing.T) {
	f := newDaemonFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		runDaemon(ctx, f.actions, f.dp, f.store, f.registry, f.manager, func(string, any) {}, discardLogger())
		close(done)
	}()

	f.actions <- SetPage{DeviceID: "deck1", Page: 1}

	waitUntil(t, time.Second, func() bool {
		return f.store.Page("deck1") == 1
	}, "action was not applied")

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("daemon did not stop on cancel")
	}
}

// TestDeckManager_DuplicateConnectIgnored tests double-connect protection
func TestDeckManager_DuplicateConnectIgnored(t *testing.T) {
	f := newDaemonFixture(t)

	first := newSimDeck("sim-test", discardLogger())
	second := newSimDeck("sim-test", discardLogger())
	f.manager.Connect(first)
	f.manager.Connect(second)

	if got := f.manager.Serials(); len(got) != 1 {
		t.Errorf("expected one deck, got %v", got)
	}
}

// TestDeckManager_DeviceGoneQueuesDisconnect tests that a closed key
// stream surfaces as a disconnect action
func TestDeckManager_DeviceGoneQueuesDisconnect(t *testing.T) {
	f := newDaemonFixture(t)

	deck := newSimDeck("sim-test", discardLogger())
	f.manager.Connect(deck)

	// Simulate the hardware vanishing.
	deck.Close()

	select {
	case act := <-f.actions:
		dd, ok := act.(DisconnectDevice)
		if !ok || dd.DeviceID != "sim-test" {
			t.Errorf("expected DisconnectDevice for sim-test, got %#v", act)
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for disconnect action")
	}
}
