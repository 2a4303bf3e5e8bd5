package main

import "sync"

// ButtonConfig is everything that can be bound to one physical button on
// one page. Zero values mean "nothing bound". SwitchPage is 1-based in
// user-facing configuration; 0 means no page switch.
type ButtonConfig struct {
	Command          string `yaml:"command,omitempty"`
	Keys             string `yaml:"keys,omitempty"`
	Write            string `yaml:"write,omitempty"`
	BrightnessChange int    `yaml:"brightness_change,omitempty"`
	SwitchPage       int    `yaml:"switch_page,omitempty"`
	TargetDevice     string `yaml:"target_device,omitempty"`
}

// ConfigStore is the configuration surface the dispatcher reads button
// bindings and per-device settings from. Persistence (if any) belongs to
// the implementation; the core never writes to disk.
type ConfigStore interface {
	Button(deviceID string, page, key int) ButtonConfig

	Page(deviceID string) int
	SetPage(deviceID string, page int)

	Brightness(deviceID string) int
	SetBrightness(deviceID string, level int)

	DisplayTimeout(deviceID string) int
	SetDisplayTimeout(deviceID string, seconds int)
}

// deckStore is the in-memory ConfigStore, seeded from the daemon config
// file at startup and mutated at runtime by actions.
type deckStore struct {
	mu    sync.RWMutex
	decks map[string]*deckState
}

type deckState struct {
	page           int
	brightness     int
	displayTimeout int
	// buttons is page -> key -> binding.
	buttons map[int]map[int]ButtonConfig
}

func newDeckStore() *deckStore {
	return &deckStore{decks: make(map[string]*deckState)}
}

// ensureLocked returns the state for a deck, creating it with defaults on
// first touch.
func (s *deckStore) ensureLocked(deviceID string) *deckState {
	d, ok := s.decks[deviceID]
	if !ok {
		d = &deckState{
			brightness: defaultBrightness,
			buttons:    make(map[int]map[int]ButtonConfig),
		}
		s.decks[deviceID] = d
	}
	return d
}

func (s *deckStore) Button(deviceID string, page, key int) ButtonConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.decks[deviceID]
	if !ok {
		return ButtonConfig{}
	}
	b := d.buttons[page][key]
	if b.TargetDevice == "" {
		// A page switch without an explicit target acts on its own deck.
		b.TargetDevice = deviceID
	}
	return b
}

// SetButton installs or replaces a binding.
func (s *deckStore) SetButton(deviceID string, page, key int, b ButtonConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.ensureLocked(deviceID)
	if d.buttons[page] == nil {
		d.buttons[page] = make(map[int]ButtonConfig)
	}
	d.buttons[page][key] = b
}

func (s *deckStore) Page(deviceID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if d, ok := s.decks[deviceID]; ok {
		return d.page
	}
	return 0
}

func (s *deckStore) SetPage(deviceID string, page int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked(deviceID).page = page
}

func (s *deckStore) Brightness(deviceID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if d, ok := s.decks[deviceID]; ok {
		return d.brightness
	}
	return defaultBrightness
}

func (s *deckStore) SetBrightness(deviceID string, level int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked(deviceID).brightness = clampBrightness(level)
}

func (s *deckStore) DisplayTimeout(deviceID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if d, ok := s.decks[deviceID]; ok {
		return d.displayTimeout
	}
	return 0
}

func (s *deckStore) SetDisplayTimeout(deviceID string, seconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked(deviceID).displayTimeout = seconds
}

// seed loads one device's settings and bindings from the daemon config.
func (s *deckStore) seed(deviceID string, dc DeviceConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.ensureLocked(deviceID)
	if dc.Brightness != nil {
		d.brightness = clampBrightness(*dc.Brightness)
	}
	d.displayTimeout = dc.DisplayTimeout

	for pageIdx, page := range dc.Pages {
		if d.buttons[pageIdx] == nil {
			d.buttons[pageIdx] = make(map[int]ButtonConfig)
		}
		for key, b := range page.Buttons {
			d.buttons[pageIdx][key] = b
		}
	}
}

// clampBrightness bounds a level to the valid percent range. Out of range
// values are silently clamped, never rejected.
func clampBrightness(level int) int {
	if level < minBrightness {
		return minBrightness
	}
	if level > maxBrightness {
		return maxBrightness
	}
	return level
}
