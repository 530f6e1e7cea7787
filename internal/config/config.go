package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultBridgePort is the fixed loopback port the Blender addon dials.
const DefaultBridgePort = 32123

type Config struct {
	Bridge  BridgeConfig  `yaml:"bridge"`
	Hub     HubConfig     `yaml:"hub"`
	Assist  AssistConfig  `yaml:"assist"`
	Monitor MonitorConfig `yaml:"monitor"`
}

// BridgeConfig addresses the relay socket the addon connects to.
type BridgeConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// HubConfig addresses the UI-facing websocket/HTTP server.
type HubConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type AssistConfig struct {
	Command        string   `yaml:"command"`
	Args           []string `yaml:"args"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

type MonitorConfig struct {
	Enabled         bool   `yaml:"enabled"`
	IntervalSeconds int    `yaml:"interval_seconds"`
	ProcessName     string `yaml:"process_name"`
}

func defaultConfig() *Config {
	return &Config{
		Bridge: BridgeConfig{
			Host: "127.0.0.1",
			Port: DefaultBridgePort,
		},
		Hub: HubConfig{
			Host: "127.0.0.1",
			Port: 32124,
		},
		Assist: AssistConfig{
			Command:        "claude",
			Args:           []string{"-p"},
			TimeoutSeconds: 120,
		},
		Monitor: MonitorConfig{
			Enabled:         true,
			IntervalSeconds: 5,
			ProcessName:     "blender",
		},
	}
}

// Load reads a YAML config over the defaults, so a partial file only
// overrides what it mentions.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// LoadOrDefault falls back to the built-in defaults when the file does not
// exist. Any other read or parse failure is still an error.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if os.IsNotExist(err) {
		return defaultConfig(), nil
	}
	return cfg, err
}

func (c *Config) Validate() error {
	if err := validateAddr("bridge", c.Bridge.Host, c.Bridge.Port); err != nil {
		return err
	}
	if err := validateAddr("hub", c.Hub.Host, c.Hub.Port); err != nil {
		return err
	}
	if c.Bridge.Port == c.Hub.Port && c.Bridge.Host == c.Hub.Host {
		return fmt.Errorf("bridge and hub cannot share %s:%d", c.Hub.Host, c.Hub.Port)
	}
	if c.Assist.TimeoutSeconds < 0 {
		return fmt.Errorf("assist.timeout_seconds must not be negative, got %d", c.Assist.TimeoutSeconds)
	}
	if c.Monitor.Enabled && c.Monitor.IntervalSeconds < 1 {
		return fmt.Errorf("monitor.interval_seconds must be at least 1, got %d", c.Monitor.IntervalSeconds)
	}
	// An empty needle matches every process name, so the watcher would
	// broadcast the whole process table.
	if c.Monitor.Enabled && c.Monitor.ProcessName == "" {
		return fmt.Errorf("monitor.process_name must not be empty")
	}
	return nil
}

func validateAddr(name, host string, port int) error {
	if host == "" {
		return fmt.Errorf("%s.host must not be empty", name)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s.port out of range: %d", name, port)
	}
	return nil
}

func (b BridgeConfig) Addr() string {
	return fmt.Sprintf("%s:%d", b.Host, b.Port)
}

func (h HubConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

func (a AssistConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

func (m MonitorConfig) Interval() time.Duration {
	return time.Duration(m.IntervalSeconds) * time.Second
}
