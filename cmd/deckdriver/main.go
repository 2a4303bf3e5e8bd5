package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

const version = "1.0.0"

func printVersion() {
	fmt.Printf("deckdriver v%s\n", version)
	fmt.Println("Programmable button daemon for multi-key input devices")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  deckdriver [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Daemon that drives programmable hardware buttons: each button can run")
	fmt.Println("  a shell command, send a synthesized keyboard macro, type literal text,")
	fmt.Println("  change display brightness, or switch the active button page. Includes")
	fmt.Println("  an adaptive display dimmer per device and a state WebSocket for UIs.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Println("        Path to YAML config file (settings, devices, button bindings)")
	fmt.Println()
	fmt.Println("  -ipc-socket string")
	fmt.Printf("        Unix domain socket path for IPC (default %q)\n", defaultIPCSocket)
	fmt.Println()
	fmt.Println("  -state-addr string")
	fmt.Printf("        Listen address for the state WebSocket (default %q, empty disables)\n", defaultStateAddr)
	fmt.Println()
	fmt.Println("  -injector string")
	fmt.Println("        Key injection backend: uinput|none (default \"uinput\")")
	fmt.Println()
	fmt.Println("  -log-level string")
	fmt.Println("        Log level: error, warn, info, debug (default \"info\")")
	fmt.Println()
	fmt.Println("  -version")
	fmt.Println("        Print version and exit")
	fmt.Println()
	fmt.Println("  -help")
	fmt.Println("        Print this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Start with a config file describing decks and bindings")
	fmt.Println("  deckdriver -config /etc/deckdriver.yaml")
	fmt.Println()
	fmt.Println("  # Run without hardware and poke it over IPC")
	fmt.Println("  deckdriver -injector none")
	fmt.Println("  deck-ctl connect-device mydeck")
	fmt.Println("  deck-ctl key-press mydeck 3")
}

func main() {
	var (
		configPath  = flag.String("config", "", "Path to YAML config file")
		ipcSocket   = flag.String("ipc-socket", "", "Unix domain socket path for IPC (overrides config)")
		stateAddr   = flag.String("state-addr", "", "Listen address for the state WebSocket (overrides config)")
		injectorSel = flag.String("injector", "", "Key injection backend: uinput|none (overrides config)")
		logLevelStr = flag.String("log-level", "", "Log level: error, warn, info, debug (overrides config)")
		showVersion = flag.Bool("version", false, "Print version and exit")
		showHelp    = flag.Bool("help", false, "Print help message")
	)

	flag.Usage = printUsage
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}
	if *showVersion {
		printVersion()
		return
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	// Flag overrides
	if *ipcSocket != "" {
		cfg.IPC.SocketPath = *ipcSocket
	}
	if *stateAddr != "" {
		cfg.State.Addr = *stateAddr
	}
	if *injectorSel != "" {
		cfg.Injector.Backend = *injectorSel
	}
	if *logLevelStr != "" {
		cfg.Logging.Level = *logLevelStr
	}

	logLevel, err := parseLogLevel(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	logger := setupLogger(logLevel)

	// Key injection backend
	var injector KeyInjector
	switch cfg.Injector.Backend {
	case "uinput":
		u, err := newUinputInjector()
		if err != nil {
			logger.Error("failed to initialize uinput injector", "error", err, "tip", "use -injector none to run without key injection")
			os.Exit(1)
		}
		defer u.Close()
		injector = u
	case "none":
		injector = nopInjector{}
	default:
		fmt.Fprintln(os.Stderr, "error: -injector must be one of: uinput, none")
		os.Exit(1)
	}

	// Core state
	store := newDeckStore()
	registry := NewDimmerRegistry()
	actions := make(chan Action, 64)
	manager := newDeckManager(store, registry, wallScheduler{}, actions, logger)
	dispatcher := NewDispatcher(store, registry, injector, execSpawner{}, manager, componentLogger(logger, "dispatcher"))

	// Seed per-device settings and bindings from the config file. A
	// simulated deck without a serial gets one up front so its bindings
	// land under the id it will connect with.
	for i := range cfg.Devices {
		if cfg.Devices[i].Simulated && cfg.Devices[i].Serial == "" {
			cfg.Devices[i].Serial = newSimSerial()
		}
		store.seed(cfg.Devices[i].Serial, cfg.Devices[i])
	}

	// State WebSocket
	server := NewServer(componentLogger(logger, "ws"), actions, HubConfig{})
	dispatcher.SetEmitter(server.Hub().Emit)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		server.Hub().Run(ctx)
		return nil
	})

	g.Go(func() error {
		return runIPCServer(ctx, cfg.IPC.SocketPath, actions, componentLogger(logger, "ipc"))
	})

	if cfg.State.Addr != "" {
		mux := http.NewServeMux()
		server.Register(mux, cfg.State.Path)
		srv := &http.Server{Addr: cfg.State.Addr, Handler: mux}

		g.Go(func() error {
			logger.Info("state listener starting", "addr", cfg.State.Addr, "path", cfg.State.Path)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("state listener: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		runDaemon(ctx, actions, dispatcher, store, registry, manager, server.Hub().Emit, componentLogger(logger, "daemon"))
		return nil
	})

	// Attach simulated decks once everything is running.
	for _, dev := range cfg.Devices {
		if dev.Simulated {
			deck := newSimDeck(dev.Serial, logger)
			manager.Connect(deck)
			server.Hub().Emit("device_connected", deviceLifecycleData{DeviceID: deck.ID()})
		}
	}

	logger.Info("deckdriver started", "version", version,
		"ipc_socket", cfg.IPC.SocketPath,
		"state_addr", cfg.State.Addr,
		"injector", cfg.Injector.Backend,
		"devices", len(cfg.Devices))

	<-ctx.Done()
	logger.Info("shutting down")
	manager.CloseAll()

	if err := g.Wait(); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
