// Package config loads and validates the bridge configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete bridge configuration.
type Config struct {
	Bridge  BridgeConfig  `yaml:"bridge"`
	Headend HeadendConfig `yaml:"headend"`
	API     APIConfig     `yaml:"api"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// BridgeConfig contains demux bridge tuning knobs.
type BridgeConfig struct {
	ScanTimeout      int  `yaml:"scan_timeout"` // seconds
	AncillaryStreams bool `yaml:"ancillary_streams"`
}

// HeadendConfig contains the built-in headend backend configuration.
type HeadendConfig struct {
	SRTAddress    string          `yaml:"srt_address"`
	RecordingsDir string          `yaml:"recordings_dir"`
	Channels      []ChannelConfig `yaml:"channels"`
}

// ChannelConfig declares one channel in the headend lineup. The SRT
// stream id of an incoming caller selects the channel it feeds.
type ChannelConfig struct {
	ID       int    `yaml:"id"`
	Name     string `yaml:"name"`
	StreamID string `yaml:"stream_id"`
	Radio    bool   `yaml:"radio"`
}

// APIConfig contains the HTTP/3 status API configuration.
type APIConfig struct {
	Address string `yaml:"address"`
	Enabled bool   `yaml:"enabled"`
}

// MetricsConfig contains the Prometheus exposition endpoint configuration.
type MetricsConfig struct {
	Address string `yaml:"address"`
	Enabled bool   `yaml:"enabled"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns a configuration with sensible defaults for local use.
func Default() *Config {
	return &Config{
		Bridge: BridgeConfig{
			ScanTimeout: 10,
		},
		Headend: HeadendConfig{
			SRTAddress:    ":6000",
			RecordingsDir: "./recordings",
		},
		API: APIConfig{
			Address: ":8443",
			Enabled: true,
		},
		Metrics: MetricsConfig{
			Address: ":9090",
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads and parses the configuration file, layered over Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate performs validation of the configuration.
func (c *Config) Validate() error {
	if err := c.Bridge.Validate(); err != nil {
		return fmt.Errorf("bridge config: %w", err)
	}

	if err := c.Headend.Validate(); err != nil {
		return fmt.Errorf("headend config: %w", err)
	}

	if err := c.API.Validate(); err != nil {
		return fmt.Errorf("api config: %w", err)
	}

	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// ScanTimeoutDuration returns the scan timeout as a time.Duration.
func (b *BridgeConfig) ScanTimeoutDuration() time.Duration {
	return time.Duration(b.ScanTimeout) * time.Second
}

// Validate validates bridge configuration.
func (b *BridgeConfig) Validate() error {
	if b.ScanTimeout < 1 {
		return fmt.Errorf("scan_timeout must be at least 1 second, got %d", b.ScanTimeout)
	}

	return nil
}

// Validate validates headend configuration.
func (h *HeadendConfig) Validate() error {
	if h.SRTAddress == "" {
		return fmt.Errorf("srt_address cannot be empty")
	}

	if h.RecordingsDir == "" {
		return fmt.Errorf("recordings_dir cannot be empty")
	}

	seen := make(map[int]struct{}, len(h.Channels))
	for i, ch := range h.Channels {
		if ch.ID < 1 {
			return fmt.Errorf("channel %d: id must be positive, got %d", i, ch.ID)
		}
		if _, dup := seen[ch.ID]; dup {
			return fmt.Errorf("channel %d: duplicate id %d", i, ch.ID)
		}
		seen[ch.ID] = struct{}{}

		if ch.Name == "" {
			return fmt.Errorf("channel %d: name cannot be empty", ch.ID)
		}
	}

	return nil
}

// Validate validates API configuration.
func (a *APIConfig) Validate() error {
	if a.Enabled && a.Address == "" {
		return fmt.Errorf("api address cannot be empty when the API is enabled")
	}

	return nil
}

// Validate validates metrics configuration.
func (m *MetricsConfig) Validate() error {
	if m.Enabled && m.Address == "" {
		return fmt.Errorf("metrics address cannot be empty when metrics are enabled")
	}

	return nil
}

// Validate validates logging configuration.
func (l *LoggingConfig) Validate() error {
	switch l.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("invalid log level %q, must be one of: debug, info, warn, error", l.Level)
	}
}
