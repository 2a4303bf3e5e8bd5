package main

import (
	"encoding/json"
	"fmt"
)

// ============================================================================
// Actions
// ============================================================================
// Actions are the daemon loop's only input: key events forwarded from
// connected decks, and control requests arriving over IPC (from a
// configuration UI, scripts, or deck-ctl). The loop consumes them one at
// a time, so everything that touches per-device state is serialized.
// ============================================================================

// Action is the marker interface for daemon loop inputs.
type Action interface {
	actionMarker()
}

// KeyPressed is a physical (or simulated) key transition on a deck.
type KeyPressed struct {
	DeviceID string `json:"device_id"`
	Key      int    `json:"key"`
	Pressed  bool   `json:"pressed"`
}

func (KeyPressed) actionMarker() {}

// SetPage changes the active page of a deck. Page is 0-based.
type SetPage struct {
	DeviceID string `json:"device_id"`
	Page     int    `json:"page"`
}

func (SetPage) actionMarker() {}

// SetBrightness sets a deck's normal brightness level (0-100).
type SetBrightness struct {
	DeviceID string `json:"device_id"`
	Level    int    `json:"level"`
}

func (SetBrightness) actionMarker() {}

// SetDisplayTimeout changes the idle period before a deck dims. Zero
// disables auto-dim.
type SetDisplayTimeout struct {
	DeviceID string `json:"device_id"`
	Seconds  int    `json:"seconds"`
}

func (SetDisplayTimeout) actionMarker() {}

// DimDisplay manually starts (or, with Toggle, undoes) a dim on one deck.
type DimDisplay struct {
	DeviceID string `json:"device_id"`
	Toggle   bool   `json:"toggle,omitempty"`
}

func (DimDisplay) actionMarker() {}

// ConnectDevice attaches a simulated deck under the given serial. Useful
// for exercising the daemon without hardware.
type ConnectDevice struct {
	Serial string `json:"serial,omitempty"`
}

func (ConnectDevice) actionMarker() {}

// DisconnectDevice detaches a deck and tears down its dimmer.
type DisconnectDevice struct {
	DeviceID string `json:"device_id"`
}

func (DisconnectDevice) actionMarker() {}

// RequestStateSnapshot asks the daemon loop for a coherent snapshot of
// all decks, delivered on Reply. Used by the state WebSocket on client
// connect. Not accepted over IPC.
type RequestStateSnapshot struct {
	Reply chan<- StateSnapshot
}

func (RequestStateSnapshot) actionMarker() {}

// ============================================================================
// JSON envelope for IPC
// ============================================================================

// ActionEnvelope wraps an action with a type discriminator.
type ActionEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// UnmarshalAction deserializes a JSON envelope into a concrete Action.
func UnmarshalAction(data []byte) (Action, error) {
	var env ActionEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case "key_pressed":
		var a KeyPressed
		if err := json.Unmarshal(env.Data, &a); err != nil {
			return nil, fmt.Errorf("unmarshal KeyPressed: %w", err)
		}
		return a, nil

	case "set_page":
		var a SetPage
		if err := json.Unmarshal(env.Data, &a); err != nil {
			return nil, fmt.Errorf("unmarshal SetPage: %w", err)
		}
		return a, nil

	case "set_brightness":
		var a SetBrightness
		if err := json.Unmarshal(env.Data, &a); err != nil {
			return nil, fmt.Errorf("unmarshal SetBrightness: %w", err)
		}
		return a, nil

	case "set_display_timeout":
		var a SetDisplayTimeout
		if err := json.Unmarshal(env.Data, &a); err != nil {
			return nil, fmt.Errorf("unmarshal SetDisplayTimeout: %w", err)
		}
		return a, nil

	case "dim_display":
		var a DimDisplay
		if err := json.Unmarshal(env.Data, &a); err != nil {
			return nil, fmt.Errorf("unmarshal DimDisplay: %w", err)
		}
		return a, nil

	case "connect_device":
		var a ConnectDevice
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &a); err != nil {
				return nil, fmt.Errorf("unmarshal ConnectDevice: %w", err)
			}
		}
		return a, nil

	case "disconnect_device":
		var a DisconnectDevice
		if err := json.Unmarshal(env.Data, &a); err != nil {
			return nil, fmt.Errorf("unmarshal DisconnectDevice: %w", err)
		}
		return a, nil

	default:
		return nil, fmt.Errorf("unknown action type: %q", env.Type)
	}
}

// MarshalAction serializes an Action into a JSON envelope.
func MarshalAction(a Action) ([]byte, error) {
	var env ActionEnvelope

	marshal := func(typ string, v any) error {
		env.Type = typ
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", typ, err)
		}
		env.Data = data
		return nil
	}

	var err error
	switch a := a.(type) {
	case KeyPressed:
		err = marshal("key_pressed", a)
	case SetPage:
		err = marshal("set_page", a)
	case SetBrightness:
		err = marshal("set_brightness", a)
	case SetDisplayTimeout:
		err = marshal("set_display_timeout", a)
	case DimDisplay:
		err = marshal("dim_display", a)
	case ConnectDevice:
		err = marshal("connect_device", a)
	case DisconnectDevice:
		err = marshal("disconnect_device", a)
	default:
		return nil, fmt.Errorf("unsupported action type: %T", a)
	}
	if err != nil {
		return nil, err
	}

	return json.Marshal(env)
}
