// Package config loads and validates the Drip configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/leadkit/drip/internal/logging"
	"github.com/leadkit/drip/internal/messaging/telegram"
)

// Config represents the main configuration
type Config struct {
	Version       string               `yaml:"version"`
	Logging       *logging.Config      `yaml:"logging"`
	Store         *StoreConfig         `yaml:"store"`
	Sequences     *SequencesConfig     `yaml:"sequences"`
	Scheduler     *SchedulerConfig     `yaml:"scheduler"`
	Escalations   *EscalationsConfig   `yaml:"escalations"`
	Notifications *NotificationsConfig `yaml:"notifications"`
	Telegram      *telegram.Config     `yaml:"telegram"`
	Gateway       *GatewayConfig       `yaml:"gateway"`
}

// StoreConfig holds lead store settings.
type StoreConfig struct {
	// Path is the data directory holding the SQLite database.
	Path string `yaml:"path"`
}

// SequencesConfig points at the operator-authored sequence catalog.
type SequencesConfig struct {
	// Path is the YAML file holding the drip sequences.
	Path string `yaml:"path"`
	// Milestones overrides the checkpoint day offsets used to detect
	// sequence gaps. Empty means the default {5,10,15,21,30,45,60}.
	Milestones []int `yaml:"milestones"`
}

// Duration wraps time.Duration so values like "30s" parse from YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// SchedulerConfig holds scan loop settings.
type SchedulerConfig struct {
	// Interval between scans.
	Interval Duration `yaml:"interval"`
	// DispatchTimeout bounds one outbound send.
	DispatchTimeout Duration `yaml:"dispatch_timeout"`
}

// EscalationsConfig holds escalation queue settings.
type EscalationsConfig struct {
	// Capacity bounds the pending escalation queue. Capacity 1 keeps only
	// the first pending escalation.
	Capacity int `yaml:"capacity"`
}

// NotificationsConfig holds notification feed settings.
type NotificationsConfig struct {
	// TTL is the display window before an event auto-expires.
	TTL Duration `yaml:"ttl"`
}

// GatewayConfig holds the ops HTTP server binding.
type GatewayConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Address returns the host:port string for the ops server.
func (c *GatewayConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".drip")
	return &Config{
		Version: "1.0",
		Logging: logging.DefaultConfig(),
		Store: &StoreConfig{
			Path: dataDir,
		},
		Sequences: &SequencesConfig{
			Path: filepath.Join(dataDir, "sequences.yaml"),
		},
		Scheduler: &SchedulerConfig{
			Interval:        Duration(60 * time.Second),
			DispatchTimeout: Duration(10 * time.Second),
		},
		Escalations: &EscalationsConfig{
			Capacity: 8,
		},
		Notifications: &NotificationsConfig{
			TTL: Duration(5 * time.Second),
		},
		Telegram: telegram.DefaultConfig(),
		Gateway: &GatewayConfig{
			Host: "127.0.0.1",
			Port: 8470,
		},
	}
}

// Load reads configuration from a YAML file, filling gaps with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.Store == nil || c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	if c.Sequences == nil || c.Sequences.Path == "" {
		return fmt.Errorf("sequences.path is required")
	}
	// Zero means "use the built-in default" for these; only negatives are
	// authoring mistakes.
	if c.Scheduler != nil {
		if c.Scheduler.Interval < 0 {
			return fmt.Errorf("scheduler.interval must not be negative")
		}
		if c.Scheduler.DispatchTimeout < 0 {
			return fmt.Errorf("scheduler.dispatch_timeout must not be negative")
		}
	}
	if c.Escalations != nil && c.Escalations.Capacity < 0 {
		return fmt.Errorf("escalations.capacity must not be negative")
	}
	for _, day := range c.Sequences.Milestones {
		if day <= 0 {
			return fmt.Errorf("sequences.milestones must be positive day offsets, got %d", day)
		}
	}
	if c.Telegram != nil {
		if err := c.Telegram.Validate(); err != nil {
			return err
		}
	}
	if c.Gateway != nil && (c.Gateway.Port <= 0 || c.Gateway.Port > 65535) {
		return fmt.Errorf("gateway.port must be in 1-65535")
	}
	return nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// DefaultConfigPath returns the default config file location.
func DefaultConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".drip", "config.yaml")
}
