package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Scheduler.Interval.Std() != 60*time.Second {
		t.Errorf("Interval = %v, want 60s", cfg.Scheduler.Interval)
	}
	if cfg.Notifications.TTL.Std() != 5*time.Second {
		t.Errorf("TTL = %v, want 5s", cfg.Notifications.TTL)
	}
	if cfg.Escalations.Capacity != 8 {
		t.Errorf("Capacity = %d, want 8", cfg.Escalations.Capacity)
	}
	if cfg.Telegram.Enabled {
		t.Error("telegram enabled by default")
	}
}

func TestLoad(t *testing.T) {
	content := `version: "1.0"
store:
  path: /var/lib/drip
sequences:
  path: /etc/drip/sequences.yaml
  milestones: [3, 7, 14]
scheduler:
  interval: 30s
  dispatch_timeout: 5s
escalations:
  capacity: 1
gateway:
  host: 0.0.0.0
  port: 9000
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Store.Path != "/var/lib/drip" {
		t.Errorf("Store.Path = %q", cfg.Store.Path)
	}
	if cfg.Scheduler.Interval.Std() != 30*time.Second {
		t.Errorf("Interval = %v, want 30s", cfg.Scheduler.Interval)
	}
	if cfg.Escalations.Capacity != 1 {
		t.Errorf("Capacity = %d, want 1", cfg.Escalations.Capacity)
	}
	if len(cfg.Sequences.Milestones) != 3 {
		t.Errorf("Milestones = %v", cfg.Sequences.Milestones)
	}
	if got := cfg.Gateway.Address(); got != "0.0.0.0:9000" {
		t.Errorf("Address = %q", got)
	}
	// Untouched sections keep defaults.
	if cfg.Notifications.TTL.Std() != 5*time.Second {
		t.Errorf("TTL = %v, want default 5s", cfg.Notifications.TTL)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("Load of missing file succeeded")
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "missing store path",
			mutate: func(c *Config) { c.Store.Path = "" },
			want:   "store.path",
		},
		{
			name:   "missing sequences path",
			mutate: func(c *Config) { c.Sequences.Path = "" },
			want:   "sequences.path",
		},
		{
			name:   "bad milestone",
			mutate: func(c *Config) { c.Sequences.Milestones = []int{5, 0} },
			want:   "milestones",
		},
		{
			name:   "negative interval",
			mutate: func(c *Config) { c.Scheduler.Interval = Duration(-time.Second) },
			want:   "scheduler.interval",
		},
		{
			name:   "negative dispatch timeout",
			mutate: func(c *Config) { c.Scheduler.DispatchTimeout = Duration(-time.Second) },
			want:   "scheduler.dispatch_timeout",
		},
		{
			name:   "negative capacity",
			mutate: func(c *Config) { c.Escalations.Capacity = -1 },
			want:   "escalations.capacity",
		},
		{
			name:   "telegram enabled without token",
			mutate: func(c *Config) { c.Telegram.Enabled = true },
			want:   "bot_token",
		},
		{
			name:   "bad port",
			mutate: func(c *Config) { c.Gateway.Port = 70000 },
			want:   "gateway.port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate passed, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want mention of %q", err, tt.want)
			}
		})
	}

	// Zero values are "use the default", not errors.
	cfg := DefaultConfig()
	cfg.Scheduler.Interval = 0
	cfg.Scheduler.DispatchTimeout = 0
	cfg.Escalations.Capacity = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate rejected zero defaults: %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Store.Path = "/data/drip"
	cfg.Escalations.Capacity = 2

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Store.Path != "/data/drip" {
		t.Errorf("Store.Path = %q", loaded.Store.Path)
	}
	if loaded.Escalations.Capacity != 2 {
		t.Errorf("Capacity = %d, want 2", loaded.Escalations.Capacity)
	}
}
