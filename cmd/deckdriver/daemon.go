package main

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
)

// ============================================================================
// Daemon loop
// ============================================================================
//
// One worker goroutine consumes the action channel. Key events are
// dispatched inline, so a macro with a delay stalls only this worker,
// never the dimmer timers (they run on the runtime's timer goroutines)
// and never the WebSocket hub. Control actions (page, brightness,
// timeout, dim, device lifecycle) are serialized through the same
// channel, which keeps the store and registry mutations ordered with
// respect to key handling.
// ============================================================================

func runDaemon(
	ctx context.Context,
	actions <-chan Action,
	dispatcher *Dispatcher,
	store *deckStore,
	registry *DimmerRegistry,
	manager *deckManager,
	emit func(typ string, data any),
	logger *slog.Logger,
) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("daemon stopping (context canceled)")
			return

		case act, ok := <-actions:
			if !ok {
				logger.Info("daemon stopping (actions channel closed)")
				return
			}
			applyAction(act, dispatcher, store, registry, manager, emit, logger)
		}
	}
}

// applyAction executes one action against the daemon's state.
func applyAction(
	act Action,
	dispatcher *Dispatcher,
	store *deckStore,
	registry *DimmerRegistry,
	manager *deckManager,
	emit func(typ string, data any),
	logger *slog.Logger,
) {
	switch a := act.(type) {
	case KeyPressed:
		dispatcher.HandleKey(a.DeviceID, a.Key, a.Pressed)

	case SetPage:
		store.SetPage(a.DeviceID, a.Page)
		// Interacting with the page counts as interaction with the deck.
		if d := registry.Get(a.DeviceID); d != nil {
			d.Reset()
		}
		emit("page_changed", pageChangedData{DeviceID: a.DeviceID, Page: a.Page})

	case SetBrightness:
		level := clampBrightness(a.Level)
		if err := manager.SetBrightness(a.DeviceID, level); err != nil {
			logger.Warn("could not set brightness", "device", a.DeviceID, "error", err)
			return
		}
		store.SetBrightness(a.DeviceID, level)
		if d := registry.Get(a.DeviceID); d != nil {
			d.SetBrightness(level)
			d.Reset()
		}
		emit("brightness_changed", brightnessChangedData{DeviceID: a.DeviceID, Level: level})

	case SetDisplayTimeout:
		store.SetDisplayTimeout(a.DeviceID, a.Seconds)
		if d := registry.Get(a.DeviceID); d != nil {
			d.SetTimeout(a.Seconds)
			d.Reset()
		}

	case DimDisplay:
		d := registry.Get(a.DeviceID)
		if d == nil {
			logger.Warn("dim requested for unknown device", "device", a.DeviceID)
			return
		}
		d.Dim(a.Toggle)

	case ConnectDevice:
		deck := newSimDeck(a.Serial, logger)
		manager.Connect(deck)
		emit("device_connected", deviceLifecycleData{DeviceID: deck.ID()})

	case DisconnectDevice:
		manager.Disconnect(a.DeviceID)
		emit("device_disconnected", deviceLifecycleData{DeviceID: a.DeviceID})

	case RequestStateSnapshot:
		a.Reply <- snapshotState(store, manager)

	default:
		logger.Warn("unhandled action", "type", fmt.Sprintf("%T", act))
	}
}

// snapshotState builds the per-deck state sent to new WS clients.
func snapshotState(store *deckStore, manager *deckManager) StateSnapshot {
	serials := manager.Serials()
	sort.Strings(serials)

	snap := StateSnapshot{Decks: make([]DeckSnapshot, 0, len(serials))}
	for _, id := range serials {
		snap.Decks = append(snap.Decks, DeckSnapshot{
			DeviceID:       id,
			Page:           store.Page(id),
			Brightness:     store.Brightness(id),
			DisplayTimeout: store.DisplayTimeout(id),
		})
	}
	return snap
}
