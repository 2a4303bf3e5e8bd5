package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration for the deckdriver daemon.
//
// The config file is the primary configuration surface; flags exist for
// small overrides. Defaults and validation are centralized here so the
// rest of the code can assume a well-formed config.
type Config struct {
	// IPC configuration
	IPC IPCConfig `yaml:"ipc"`

	// State WebSocket server configuration
	State StateConfig `yaml:"state"`

	// Key injection backend
	Injector InjectorConfig `yaml:"injector"`

	// Devices known at startup: per-deck settings and button bindings.
	Devices []DeviceConfig `yaml:"devices,omitempty"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path"`
}

type StateConfig struct {
	// Addr is the HTTP listen address for the state WebSocket. Empty
	// disables the listener.
	Addr string `yaml:"addr"`
	// Path is the WebSocket endpoint path.
	Path string `yaml:"path"`
}

type InjectorConfig struct {
	// Backend selects the key injection implementation: "uinput" or
	// "none". "none" logs injections away, for hosts where /dev/uinput
	// is unavailable.
	Backend string `yaml:"backend"`
}

// DeviceConfig seeds one deck's settings and button bindings. Serial
// "sim" entries (or Simulated: true) are attached as simulated decks at
// startup.
type DeviceConfig struct {
	Serial         string `yaml:"serial"`
	Simulated      bool   `yaml:"simulated,omitempty"`
	Brightness     *int   `yaml:"brightness,omitempty"`
	DisplayTimeout int    `yaml:"display_timeout,omitempty"`

	Pages []PageConfig `yaml:"pages,omitempty"`
}

// PageConfig is one page of button bindings, keyed by button index.
type PageConfig struct {
	Buttons map[int]ButtonConfig `yaml:"buttons,omitempty"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		IPC:      IPCConfig{SocketPath: defaultIPCSocket},
		State:    StateConfig{Addr: defaultStateAddr, Path: "/state"},
		Injector: InjectorConfig{Backend: "uinput"},
		Logging:  LoggingConfig{Level: "info"},
	}
}

// LoadConfig reads and validates a YAML config file, layered over the
// defaults. An empty path returns the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyDefaults fills in zero values left by a sparse config file.
func (c *Config) applyDefaults() {
	if c.IPC.SocketPath == "" {
		c.IPC.SocketPath = defaultIPCSocket
	}
	if c.State.Path == "" {
		c.State.Path = "/state"
	}
	if c.Injector.Backend == "" {
		c.Injector.Backend = "uinput"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// validate rejects configurations the daemon cannot run with.
func (c *Config) validate() error {
	switch c.Injector.Backend {
	case "uinput", "none":
	default:
		return fmt.Errorf("injector.backend must be uinput or none, got %q", c.Injector.Backend)
	}

	if _, err := parseLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	seen := make(map[string]bool)
	for i, dev := range c.Devices {
		if dev.Serial == "" && !dev.Simulated {
			return fmt.Errorf("devices[%d]: serial is required for non-simulated devices", i)
		}
		if dev.Serial != "" {
			if seen[dev.Serial] {
				return fmt.Errorf("devices[%d]: duplicate serial %q", i, dev.Serial)
			}
			seen[dev.Serial] = true
		}
		if dev.Brightness != nil {
			if *dev.Brightness < minBrightness || *dev.Brightness > maxBrightness {
				return fmt.Errorf("devices[%d]: brightness must be %d-%d", i, minBrightness, maxBrightness)
			}
		}
		if dev.DisplayTimeout < 0 {
			return fmt.Errorf("devices[%d]: display_timeout must be >= 0", i)
		}
		for p, page := range dev.Pages {
			for key, b := range page.Buttons {
				if key < 0 {
					return fmt.Errorf("devices[%d] page %d: negative button index", i, p)
				}
				if b.SwitchPage < 0 {
					return fmt.Errorf("devices[%d] page %d button %d: switch_page must be >= 1 (0 = none)", i, p, key)
				}
			}
		}
	}
	return nil
}
