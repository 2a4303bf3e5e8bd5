package main

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
)

// ============================================================================
// deck-ctl - Command-line IPC Client
// ============================================================================
// Sends actions to a running deckdriver daemon via its Unix socket.
//
// Usage:
//   deck-ctl key-press <device> <key>
//   deck-ctl set-page <device> <page>
//   deck-ctl set-brightness <device> <level>
//   deck-ctl set-timeout <device> <seconds>
//   deck-ctl dim <device> [--toggle]
//   deck-ctl connect-device [serial]
//   deck-ctl disconnect-device <device>
//
// Options:
//   -socket PATH    Unix domain socket path (default: /tmp/deckdriver.sock)
// ============================================================================

// Action payloads (duplicated from the daemon for a standalone binary)

type KeyPressed struct {
	DeviceID string `json:"device_id"`
	Key      int    `json:"key"`
	Pressed  bool   `json:"pressed"`
}

type SetPage struct {
	DeviceID string `json:"device_id"`
	Page     int    `json:"page"`
}

type SetBrightness struct {
	DeviceID string `json:"device_id"`
	Level    int    `json:"level"`
}

type SetDisplayTimeout struct {
	DeviceID string `json:"device_id"`
	Seconds  int    `json:"seconds"`
}

type DimDisplay struct {
	DeviceID string `json:"device_id"`
	Toggle   bool   `json:"toggle,omitempty"`
}

type ConnectDevice struct {
	Serial string `json:"serial,omitempty"`
}

type DisconnectDevice struct {
	DeviceID string `json:"device_id"`
}

// ActionEnvelope wraps actions for JSON
type ActionEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// IPCResponse represents the daemon's response
type IPCResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func main() {
	socketPath := "/tmp/deckdriver.sock"

	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	if args[0] == "-socket" || args[0] == "--socket" {
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "error: -socket requires an argument\n")
			os.Exit(1)
		}
		socketPath = args[1]
		args = args[2:]
	}

	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	typ, payload, err := parseCommand(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		printUsage()
		os.Exit(1)
	}
	if typ == "" {
		// help
		return
	}

	if err := sendAction(socketPath, typ, payload); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("ok")
}

// parseCommand maps CLI arguments to an action envelope type and payload.
func parseCommand(args []string) (string, any, error) {
	atoi := func(name, s string) (int, error) {
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("invalid %s %q", name, s)
		}
		return n, nil
	}

	switch args[0] {
	case "key-press", "press":
		if len(args) < 3 {
			return "", nil, fmt.Errorf("key-press requires <device> <key>")
		}
		key, err := atoi("key", args[2])
		if err != nil {
			return "", nil, err
		}
		return "key_pressed", KeyPressed{DeviceID: args[1], Key: key, Pressed: true}, nil

	case "set-page", "page":
		if len(args) < 3 {
			return "", nil, fmt.Errorf("set-page requires <device> <page>")
		}
		page, err := atoi("page", args[2])
		if err != nil {
			return "", nil, err
		}
		return "set_page", SetPage{DeviceID: args[1], Page: page}, nil

	case "set-brightness", "brightness":
		if len(args) < 3 {
			return "", nil, fmt.Errorf("set-brightness requires <device> <level>")
		}
		level, err := atoi("level", args[2])
		if err != nil {
			return "", nil, err
		}
		return "set_brightness", SetBrightness{DeviceID: args[1], Level: level}, nil

	case "set-timeout", "timeout":
		if len(args) < 3 {
			return "", nil, fmt.Errorf("set-timeout requires <device> <seconds>")
		}
		secs, err := atoi("seconds", args[2])
		if err != nil {
			return "", nil, err
		}
		return "set_display_timeout", SetDisplayTimeout{DeviceID: args[1], Seconds: secs}, nil

	case "dim":
		if len(args) < 2 {
			return "", nil, fmt.Errorf("dim requires <device>")
		}
		toggle := len(args) > 2 && (args[2] == "--toggle" || args[2] == "toggle")
		return "dim_display", DimDisplay{DeviceID: args[1], Toggle: toggle}, nil

	case "connect-device", "connect":
		serial := ""
		if len(args) > 1 {
			serial = args[1]
		}
		return "connect_device", ConnectDevice{Serial: serial}, nil

	case "disconnect-device", "disconnect":
		if len(args) < 2 {
			return "", nil, fmt.Errorf("disconnect-device requires <device>")
		}
		return "disconnect_device", DisconnectDevice{DeviceID: args[1]}, nil

	case "help", "-h", "--help":
		printUsage()
		return "", nil, nil

	default:
		return "", nil, fmt.Errorf("unknown command: %s", args[0])
	}
}

func sendAction(socketPath, typ string, payload any) error {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal action: %w", err)
	}
	env, err := json.Marshal(ActionEnvelope{Type: typ, Data: data})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	if _, err := fmt.Fprintf(conn, "%s\n", env); err != nil {
		return fmt.Errorf("send action: %w", err)
	}

	var response IPCResponse
	decoder := json.NewDecoder(conn)
	if err := decoder.Decode(&response); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if response.Status == "error" {
		return fmt.Errorf("daemon error: %s", response.Error)
	}

	return nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `deck-ctl - Control a running deckdriver daemon via IPC

Usage:
  deck-ctl [options] <command> [args]

Options:
  -socket PATH    Unix domain socket path (default: /tmp/deckdriver.sock)

Commands:
  key-press <device> <key>           Simulate a key press on a deck
  set-page <device> <page>           Switch a deck's active page (0-based)
  set-brightness <device> <level>    Set normal brightness (0-100)
  set-timeout <device> <seconds>     Set idle seconds before auto-dim (0 = off)
  dim <device> [--toggle]            Start a dim now (toggle also wakes)
  connect-device [serial]            Attach a simulated deck
  disconnect-device <device>         Detach a deck
  help, -h, --help                   Show this help message

Examples:
  deck-ctl connect-device mydeck
  deck-ctl key-press mydeck 3
  deck-ctl -socket /var/run/deckdriver.sock dim mydeck --toggle
`)
}
