package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/1ureka/ucctl/internal/protocol"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ucctl.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Port != 49162 {
		t.Errorf("Port = %d", cfg.Port)
	}
	if cfg.HeartbeatInterval != 2*time.Second {
		t.Errorf("HeartbeatInterval = %v", cfg.HeartbeatInterval)
	}
	if cfg.Client.Encoding != protocol.DefaultEncoding || cfg.Client.InternalName != "ucremoteapp" {
		t.Errorf("Client = %+v", cfg.Client)
	}
	if cfg.Client.Identifier == "" {
		t.Error("default identifier is empty")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeFile(t, `
host = " 192.168.1.40 "
heartbeat_interval = "500ms"
monitor_addr = "127.0.0.1:9100"

[client]
name = "Stage Left"
encoding = 1
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Host != "192.168.1.40" {
		t.Errorf("Host = %q", cfg.Host)
	}
	if cfg.HeartbeatInterval != 500*time.Millisecond {
		t.Errorf("HeartbeatInterval = %v", cfg.HeartbeatInterval)
	}
	if cfg.MonitorAddr != "127.0.0.1:9100" {
		t.Errorf("MonitorAddr = %q", cfg.MonitorAddr)
	}
	if cfg.Client.Name != "Stage Left" || cfg.Client.Encoding != 1 {
		t.Errorf("Client = %+v", cfg.Client)
	}
	// Untouched keys keep defaults.
	if cfg.Port != 49162 || cfg.WriteTimeout != 5*time.Second || cfg.Client.Type != "iPhone" {
		t.Errorf("defaults lost: %+v", cfg)
	}
	if cfg.Addr() != "192.168.1.40:49162" {
		t.Errorf("Addr() = %q", cfg.Addr())
	}
}

func TestLoadErrors(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		want    string
	}{
		{"bad toml", `host = `, "load config"},
		{"bad duration", `write_timeout = "soon"`, "write_timeout"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tc.content))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("Load() error = %v, want mention of %q", err, tc.want)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("Load() of a missing file succeeded")
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"port zero", func(c *Config) { c.Port = 0 }, "port"},
		{"port too big", func(c *Config) { c.Port = 70000 }, "port"},
		{"negative heartbeat", func(c *Config) { c.HeartbeatInterval = -time.Second }, "heartbeat_interval"},
		{"bad udp bind", func(c *Config) { c.UDPBind = "nowhere" }, "udp_bind"},
		{"bad monitor", func(c *Config) { c.MonitorAddr = "9100" }, "monitor_addr"},
		{"empty client", func(c *Config) { c.Client.Name = "" }, "client name"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("Validate() = %v, want mention of %q", err, tc.want)
			}
		})
	}
}

func TestOptionsAndSubscription(t *testing.T) {
	cfg := Default()
	cfg.HeartbeatInterval = 0
	cfg.UDPBind = "0.0.0.0:5000"
	cfg.Client.Identifier = "ABC"

	opts := cfg.Options()
	if opts.HeartbeatInterval != 0 || opts.UDPAddr != "0.0.0.0:5000" {
		t.Errorf("Options() = %+v", opts)
	}
	if opts.HeartbeatAddress != protocol.ControlAddress {
		t.Errorf("HeartbeatAddress = %v", opts.HeartbeatAddress)
	}

	sub := cfg.Subscription()
	if sub.ClientIdentifier != "ABC" || sub.ClientName != "Universal Control" {
		t.Errorf("Subscription() = %+v", sub)
	}
}
