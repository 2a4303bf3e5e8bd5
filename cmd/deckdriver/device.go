package main

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// ============================================================================
// Device layer
// ============================================================================
//
// Deck abstracts one connected multi-key device. Discovery and the wire
// protocol live behind this interface and are somebody else's problem;
// the daemon only needs a serial, a brightness knob and a stream of key
// up/down transitions.
//
// deckManager ties a Deck's lifetime to the rest of the system: on
// connect it arms a dimmer for the deck and starts forwarding its key
// events into the daemon loop, on disconnect it tears both down again.
// ============================================================================

// DeckKey is one physical key transition on a deck.
type DeckKey struct {
	Index   int
	Pressed bool
}

// Deck is a connected multi-key device.
type Deck interface {
	// ID returns the stable serial the device is known by.
	ID() string
	// SetBrightness sets the display backlight, 0-100 percent. It must
	// return quickly; the dimmer calls it on every ramp step.
	SetBrightness(level int) error
	// Keys delivers key transitions until the device goes away, at which
	// point the channel is closed.
	Keys() <-chan DeckKey
	// Close releases the device.
	Close() error
}

type deckManager struct {
	mu    sync.Mutex
	decks map[string]Deck

	store    *deckStore
	registry *DimmerRegistry
	sched    scheduler

	// actions receives forwarded key events and device-gone notices for
	// the daemon loop.
	actions chan<- Action

	logger *slog.Logger
}

func newDeckManager(store *deckStore, registry *DimmerRegistry, sched scheduler, actions chan<- Action, logger *slog.Logger) *deckManager {
	return &deckManager{
		decks:    make(map[string]Deck),
		store:    store,
		registry: registry,
		sched:    sched,
		actions:  actions,
		logger:   logger,
	}
}

// Connect wires a freshly opened deck into the daemon: applies the
// persisted brightness, arms a dimmer whose callback drives the deck's
// backlight, and starts forwarding key events.
func (m *deckManager) Connect(deck Deck) {
	id := deck.ID()

	m.mu.Lock()
	if _, dup := m.decks[id]; dup {
		m.mu.Unlock()
		m.logger.Warn("deck already connected, ignoring", "device", id)
		return
	}
	m.decks[id] = deck
	m.mu.Unlock()

	level := m.store.Brightness(id)
	if err := deck.SetBrightness(level); err != nil {
		m.logger.Warn("could not set initial brightness", "device", id, "error", err)
	}

	logger := m.logger
	dimmer := NewDimmer(m.store.DisplayTimeout(id), level, m.sched, func(level int) {
		if err := deck.SetBrightness(level); err != nil {
			logger.Warn("brightness update failed", "device", id, "error", err)
		}
	})
	m.registry.Insert(id, dimmer)
	dimmer.Reset()

	go m.forwardKeys(deck)

	m.logger.Info("deck connected", "device", id)
}

// forwardKeys pumps a deck's key transitions into the daemon loop. When
// the device goes away its key channel closes and a disconnect action is
// queued so teardown happens on the daemon goroutine.
func (m *deckManager) forwardKeys(deck Deck) {
	id := deck.ID()
	for k := range deck.Keys() {
		m.actions <- KeyPressed{DeviceID: id, Key: k.Index, Pressed: k.Pressed}
	}

	m.mu.Lock()
	_, stillThere := m.decks[id]
	m.mu.Unlock()
	if stillThere {
		m.actions <- DisconnectDevice{DeviceID: id}
	}
}

// Disconnect tears down a deck: cancels its dimmer and releases the
// device. Unknown ids are ignored (the deck may have raced its own
// disconnect notice).
func (m *deckManager) Disconnect(deviceID string) {
	m.mu.Lock()
	deck, ok := m.decks[deviceID]
	delete(m.decks, deviceID)
	m.mu.Unlock()

	if !ok {
		return
	}

	m.registry.Remove(deviceID)
	if err := deck.Close(); err != nil {
		m.logger.Warn("error closing deck", "device", deviceID, "error", err)
	}
	m.logger.Info("deck disconnected", "device", deviceID)
}

// SetBrightness applies a backlight level to a connected deck.
func (m *deckManager) SetBrightness(deviceID string, level int) error {
	m.mu.Lock()
	deck, ok := m.decks[deviceID]
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("no connected deck %q", deviceID)
	}
	return deck.SetBrightness(level)
}

// Serials returns the ids of all connected decks.
func (m *deckManager) Serials() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.decks))
	for id := range m.decks {
		ids = append(ids, id)
	}
	return ids
}

// CloseAll disconnects every deck, restoring a sane brightness first so a
// dimmed display does not stay dark after the daemon exits.
func (m *deckManager) CloseAll() {
	for _, id := range m.Serials() {
		if err := m.SetBrightness(id, m.store.Brightness(id)); err != nil {
			m.logger.Debug("could not restore brightness on shutdown", "device", id, "error", err)
		}
		m.Disconnect(id)
	}
}

// ============================================================================
// Simulated deck
// ============================================================================

// simDeck is a loopback deck with no hardware behind it. Key events are
// injected through IPC instead of read from a device, which makes the
// whole pipeline exercisable on a machine without a deck attached.
type simDeck struct {
	id     string
	keys   chan DeckKey
	logger *slog.Logger

	closeOnce sync.Once
}

// newSimSerial generates a serial for an unnamed simulated deck.
func newSimSerial() string {
	return "sim-" + uuid.NewString()[:8]
}

func newSimDeck(serial string, logger *slog.Logger) *simDeck {
	if serial == "" {
		serial = newSimSerial()
	}
	return &simDeck{
		id:     serial,
		keys:   make(chan DeckKey),
		logger: logger,
	}
}

func (d *simDeck) ID() string { return d.id }

func (d *simDeck) SetBrightness(level int) error {
	d.logger.Debug("sim deck brightness", "device", d.id, "level", level)
	return nil
}

func (d *simDeck) Keys() <-chan DeckKey { return d.keys }

func (d *simDeck) Close() error {
	d.closeOnce.Do(func() { close(d.keys) })
	return nil
}
