package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/lebduska/blendmate/internal/assist"
	"github.com/lebduska/blendmate/internal/bridge"
	"github.com/lebduska/blendmate/internal/config"
	"github.com/lebduska/blendmate/internal/hub"
	"github.com/lebduska/blendmate/internal/monitor"
)

func main() {
	configPath := flag.String("config", "blendmate.yaml", "Path to config file")
	bridgePort := flag.Int("bridge-port", 0, "Override addon listener port")
	hubPort := flag.Int("hub-port", 0, "Override UI listener port")
	quiet := flag.Bool("quiet", false, "Suppress non-fatal logging")
	flag.Parse()

	if *quiet {
		log.SetOutput(io.Discard)
	}

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *bridgePort > 0 {
		cfg.Bridge.Port = *bridgePort
	}
	if *hubPort > 0 {
		cfg.Hub.Port = *hubPort
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	var runner *assist.Runner
	if cfg.Assist.Command != "" {
		runner = assist.New(cfg.Assist.Command, cfg.Assist.Args, cfg.Assist.Timeout())
	}

	// The hub and the relay each hold a reference to the other, so the
	// sender is wired after both exist.
	h := hub.New(nil, runner)
	b := bridge.New(h)
	h.SetSender(b)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Monitor.Enabled {
		mon := monitor.New(cfg.Monitor.ProcessName, cfg.Monitor.Interval(), func(s monitor.Snapshot) {
			h.PublishMonitor(s)
		})
		go mon.Start(ctx)
	}

	// A failed bind on the addon port must not take the UI down with it;
	// Send keeps reporting no connection until a restart.
	go func() {
		if err := b.ListenAndServe(cfg.Bridge.Addr()); err != nil {
			log.Printf("Bridge listener error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutting down...")
		cancel()
		b.Close()
		h.Close()
		os.Exit(0)
	}()

	log.Printf("blendmate bridging addon %s <-> ui %s", cfg.Bridge.Addr(), cfg.Hub.Addr())
	if err := h.ListenAndServe(cfg.Hub.Addr()); err != nil {
		log.Fatalf("Hub error: %v", err)
	}
}
