package main

import "log/slog"

// ============================================================================
// Action dispatcher
// ============================================================================
//
// One key-down event can carry up to five effects, always attempted in
// the same order: spawn a command, run a key macro, type literal text,
// change brightness, switch page. A failure in any one of them is logged
// and never prevents the later ones; a flaky shell command must not eat
// the page switch bound to the same button.
//
// The dimmer has right of first refusal: if the display was dimmed, the
// keypress is consumed entirely as a wake gesture and no effect runs.
// ============================================================================

// BrightnessSink applies a backlight level to a connected device.
type BrightnessSink interface {
	SetBrightness(deviceID string, level int) error
}

// Dispatcher reacts to key events from connected decks.
type Dispatcher struct {
	store    ConfigStore
	registry *DimmerRegistry
	injector KeyInjector
	spawner  CommandSpawner
	decks    BrightnessSink
	logger   *slog.Logger

	// emit broadcasts a state event to UI subscribers. May be nil.
	emit func(typ string, data any)
}

func NewDispatcher(store ConfigStore, registry *DimmerRegistry, injector KeyInjector, spawner CommandSpawner, decks BrightnessSink, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:    store,
		registry: registry,
		injector: injector,
		spawner:  spawner,
		decks:    decks,
		logger:   logger,
	}
}

// SetEmitter installs the state broadcast callback.
func (dp *Dispatcher) SetEmitter(emit func(typ string, data any)) {
	dp.emit = emit
}

func (dp *Dispatcher) emitEvent(typ string, data any) {
	if dp.emit != nil {
		dp.emit(typ, data)
	}
}

// HandleKey processes one key transition. Key-up carries no effects.
func (dp *Dispatcher) HandleKey(deviceID string, key int, pressed bool) {
	if !pressed {
		return
	}

	dimmer := dp.registry.Get(deviceID)
	if dimmer == nil {
		// Registry entries are one-to-one with connected decks, so a key
		// event without one is a wiring bug.
		dp.logger.Error("BUG: key event for device with no dimmer", "device", deviceID, "key", key)
		return
	}

	dp.emitEvent("key_event", keyEventData{DeviceID: deviceID, Key: key})

	if dimmer.Reset() {
		// The display was dimmed; this press only wakes it.
		return
	}

	page := dp.store.Page(deviceID)
	button := dp.store.Button(deviceID, page, key)

	if button.Command != "" {
		if err := dp.spawner.Spawn(button.Command); err != nil {
			dp.logger.Error("command failed", "command", button.Command, "error", err)
		}
	}

	if button.Keys != "" {
		runMacro(parseMacro(button.Keys), dp.injector, dp.logger)
	}

	if button.Write != "" {
		typeText(button.Write, dp.injector, dp.logger)
	}

	if button.BrightnessChange != 0 {
		dp.changeBrightness(deviceID, dimmer, button.BrightnessChange)
	}

	if button.SwitchPage != 0 {
		// 1-based in configuration, 0-based in the store. The target may
		// be a different deck than the one whose key was pressed.
		dp.store.SetPage(button.TargetDevice, button.SwitchPage-1)
		dp.emitEvent("page_changed", pageChangedData{DeviceID: button.TargetDevice, Page: button.SwitchPage - 1})
	}
}

// changeBrightness applies a relative brightness change, clamped to the
// valid range, and re-arms the dimmer so the new level becomes the woken
// baseline.
func (dp *Dispatcher) changeBrightness(deviceID string, dimmer *Dimmer, delta int) {
	level := clampBrightness(dp.store.Brightness(deviceID) + delta)
	if err := dp.decks.SetBrightness(deviceID, level); err != nil {
		dp.logger.Error("could not change brightness", "device", deviceID, "error", err)
		return
	}

	dp.store.SetBrightness(deviceID, level)
	dimmer.SetBrightness(level)
	dimmer.Reset()
	dp.emitEvent("brightness_changed", brightnessChangedData{DeviceID: deviceID, Level: level})
}
