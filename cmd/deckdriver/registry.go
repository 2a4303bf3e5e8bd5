package main

import "sync"

// DimmerRegistry maps a deck serial to the Dimmer owning that deck's
// display. Entries live exactly as long as the device connection: the
// device layer inserts on connect and removes on disconnect. Lookups are
// concurrent-safe with respect to insert/remove.
//
// Looking up a serial that was never inserted is a bug in the caller, not
// a runtime condition; Get returns nil and callers report it loudly.
type DimmerRegistry struct {
	mu      sync.RWMutex
	dimmers map[string]*Dimmer
}

func NewDimmerRegistry() *DimmerRegistry {
	return &DimmerRegistry{dimmers: make(map[string]*Dimmer)}
}

// Get returns the dimmer for device id, or nil if none is registered.
func (r *DimmerRegistry) Get(deviceID string) *Dimmer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dimmers[deviceID]
}

// Insert registers the dimmer for a freshly connected device, replacing
// (and stopping) any stale entry left behind by a missed disconnect.
func (r *DimmerRegistry) Insert(deviceID string, d *Dimmer) {
	r.mu.Lock()
	old := r.dimmers[deviceID]
	r.dimmers[deviceID] = d
	r.mu.Unlock()

	if old != nil {
		old.halt()
	}
}

// Remove drops the entry for a disconnected device and cancels its
// timers. Removing an unknown id is harmless.
func (r *DimmerRegistry) Remove(deviceID string) {
	r.mu.Lock()
	d := r.dimmers[deviceID]
	delete(r.dimmers, deviceID)
	r.mu.Unlock()

	if d != nil {
		d.halt()
	}
}

// Len reports the number of registered dimmers.
func (r *DimmerRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.dimmers)
}
