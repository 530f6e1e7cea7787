package main

import (
	"flag"
	"fmt"
	"net/url"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lebduska/blendmate/internal/client"
	"github.com/lebduska/blendmate/internal/config"
	"github.com/lebduska/blendmate/internal/tui/app"
)

func main() {
	configPath := flag.String("config", "blendmate.yaml", "Path to the daemon config, used to locate the hub")
	server := flag.String("server", "", "Daemon address as host:port (overrides the config)")
	flag.Parse()

	addr := *server
	if addr == "" {
		cfg, err := config.LoadOrDefault(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
			os.Exit(1)
		}
		addr = cfg.Hub.Addr()
	}

	wsURL := "ws://" + addr + "/ws"

	ws := client.NewWSClient(wsURL)
	httpClient := client.NewHTTPClient(deriveHTTPBase(wsURL))

	m := app.New(ws, httpClient)
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// deriveHTTPBase converts ws://host:port/ws → http://host:port
func deriveHTTPBase(wsURL string) string {
	u, err := url.Parse(wsURL)
	if err != nil {
		return "http://127.0.0.1:32124"
	}
	scheme := "http"
	if strings.HasPrefix(u.Scheme, "wss") {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, u.Host)
}
