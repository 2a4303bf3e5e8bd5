package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// ws_listen subscribes to a deckdriver state websocket and prints events
// as they arrive. Useful for debugging bindings and watching the dimmer.

func main() {
	var (
		wsURL  = flag.String("ws", "ws://127.0.0.1:8743/state", "deckdriver state websocket URL")
		filter = flag.String("filter", "", "Comma-separated event types to show (default: all)")
		raw    = flag.Bool("raw", false, "Print raw JSON frames instead of formatted events")
	)
	flag.Parse()

	u, err := url.Parse(*wsURL)
	if err != nil {
		log.Fatalf("invalid websocket URL: %v", err)
	}

	wanted := map[string]bool{}
	for _, t := range strings.Split(*filter, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			wanted[t] = true
		}
	}

	// Handle shutdown
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	d := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	log.Printf("connecting to %s...", u.String())
	conn, _, err := d.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	log.Printf("connected! (press Ctrl+C to exit)")

	// Mutex to protect concurrent writes to the websocket
	var writeMu sync.Mutex

	// Ping/pong handlers for connection health
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	// Message reading loop
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("websocket error: %v", err)
				}
				return
			}
			if messageType != websocket.TextMessage {
				continue
			}
			handleFrame(message, wanted, *raw)
		}
	}()

	select {
	case <-sigc:
		log.Printf("shutting down...")
		writeMu.Lock()
		err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		writeMu.Unlock()
		if err != nil {
			log.Printf("error closing connection: %v", err)
		}
	case <-done:
		log.Printf("connection closed")
	}
}

// stateEnvelope mirrors the daemon's event framing
type stateEnvelope struct {
	Type string          `json:"type"`
	Ts   string          `json:"ts"`
	Data json.RawMessage `json:"data,omitempty"`
}

// handleFrame decodes one websocket frame and prints it
func handleFrame(message []byte, wanted map[string]bool, raw bool) {
	var env stateEnvelope
	if err := json.Unmarshal(message, &env); err != nil {
		fmt.Printf("[TEXT] %s\n", string(message))
		return
	}

	if len(wanted) > 0 && !wanted[env.Type] {
		return
	}

	if raw {
		pretty, _ := json.MarshalIndent(json.RawMessage(message), "", "  ")
		fmt.Printf("%s\n", string(pretty))
		return
	}

	switch env.Type {
	case "key_event":
		var data struct {
			DeviceID string `json:"device_id"`
			Key      int    `json:"key"`
			Pressed  bool   `json:"pressed"`
		}
		if err := json.Unmarshal(env.Data, &data); err == nil {
			state := "up"
			if data.Pressed {
				state = "down"
			}
			fmt.Printf("[KEY] %s key=%d %s\n", data.DeviceID, data.Key, state)
			return
		}
	case "page_changed":
		var data struct {
			DeviceID string `json:"device_id"`
			Page     int    `json:"page"`
		}
		if err := json.Unmarshal(env.Data, &data); err == nil {
			fmt.Printf("[PAGE] %s -> %d\n", data.DeviceID, data.Page)
			return
		}
	case "brightness_changed":
		var data struct {
			DeviceID string `json:"device_id"`
			Level    int    `json:"level"`
		}
		if err := json.Unmarshal(env.Data, &data); err == nil {
			fmt.Printf("[BRIGHTNESS] %s -> %d\n", data.DeviceID, data.Level)
			return
		}
	case "device_connected", "device_disconnected":
		var data struct {
			DeviceID string `json:"device_id"`
		}
		if err := json.Unmarshal(env.Data, &data); err == nil {
			fmt.Printf("[DEVICE] %s %s\n", data.DeviceID, strings.TrimPrefix(env.Type, "device_"))
			return
		}
	case "deck_state":
		pretty, _ := json.MarshalIndent(env.Data, "", "  ")
		fmt.Printf("[STATE]\n%s\n\n", string(pretty))
		return
	}

	// Unknown or malformed payload, fall back to pretty printing
	pretty, _ := json.MarshalIndent(env, "", "  ")
	fmt.Printf("[EVENT]\n%s\n\n", string(pretty))
}
