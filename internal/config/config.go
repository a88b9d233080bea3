// Package config holds the session configuration: defaults, the optional
// TOML file and validation. Command-line flags are applied on top by the
// CLI.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/1ureka/ucctl/internal/protocol"
	"github.com/1ureka/ucctl/internal/transport"
	"github.com/1ureka/ucctl/internal/util"
)

// Config stores everything needed to run a session against one mixer.
type Config struct {
	Host              string // mixer address, prompted for when empty
	Port              int    // TCP control port
	UDPBind           string // local UDP bind address, ephemeral when empty
	HeartbeatInterval time.Duration
	WriteTimeout      time.Duration
	ConnectTimeout    time.Duration
	MonitorAddr       string // HTTP address for /ws and /metrics, disabled when empty
	StatsInterval     time.Duration
	Debug             bool
	Client            Client
}

// Client is the identity announced in the subscribe handshake.
type Client struct {
	Name         string
	InternalName string
	Type         string
	Description  string
	Identifier   string
	Options      string
	Encoding     int
}

// Default returns the configuration used when no file or flag says
// otherwise.
func Default() Config {
	opts := transport.DefaultOptions()
	return Config{
		Port:              transport.DefaultPort,
		HeartbeatInterval: opts.HeartbeatInterval,
		WriteTimeout:      opts.WriteTimeout,
		ConnectTimeout:    opts.ConnectTimeout,
		StatsInterval:     10 * time.Second,
		Client: Client{
			Name:         "Universal Control",
			InternalName: "ucremoteapp",
			Type:         "iPhone",
			Description:  "iPhone",
			Identifier:   util.ClientIdentifier(),
			Encoding:     protocol.DefaultEncoding,
		},
	}
}

// fileConfig maps ucctl.toml keys.
type fileConfig struct {
	Host              string           `toml:"host"`
	Port              int              `toml:"port"`
	UDPBind           string           `toml:"udp_bind"`
	HeartbeatInterval string           `toml:"heartbeat_interval"`
	WriteTimeout      string           `toml:"write_timeout"`
	ConnectTimeout    string           `toml:"connect_timeout"`
	MonitorAddr       string           `toml:"monitor_addr"`
	StatsInterval     string           `toml:"stats_interval"`
	Debug             bool             `toml:"debug"`
	Client            clientFileConfig `toml:"client"`
}

type clientFileConfig struct {
	Name         string `toml:"name"`
	InternalName string `toml:"internal_name"`
	Type         string `toml:"type"`
	Description  string `toml:"description"`
	Identifier   string `toml:"identifier"`
	Options      string `toml:"options"`
	Encoding     int    `toml:"encoding"`
}

// Load reads the TOML file at path over the defaults. Keys missing from the
// file keep their default value.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		util.LogWarning("config %s: ignoring unknown keys %v", path, undecoded)
	}

	if meta.IsDefined("host") {
		cfg.Host = strings.TrimSpace(raw.Host)
	}
	if meta.IsDefined("port") {
		cfg.Port = raw.Port
	}
	if meta.IsDefined("udp_bind") {
		cfg.UDPBind = strings.TrimSpace(raw.UDPBind)
	}
	if meta.IsDefined("monitor_addr") {
		cfg.MonitorAddr = strings.TrimSpace(raw.MonitorAddr)
	}
	if meta.IsDefined("debug") {
		cfg.Debug = raw.Debug
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"heartbeat_interval", raw.HeartbeatInterval, &cfg.HeartbeatInterval},
		{"write_timeout", raw.WriteTimeout, &cfg.WriteTimeout},
		{"connect_timeout", raw.ConnectTimeout, &cfg.ConnectTimeout},
		{"stats_interval", raw.StatsInterval, &cfg.StatsInterval},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return Config{}, fmt.Errorf("load config: %s: %w", d.key, err)
		}
		*d.dst = v
	}

	client := []struct {
		key string
		raw string
		dst *string
	}{
		{"name", raw.Client.Name, &cfg.Client.Name},
		{"internal_name", raw.Client.InternalName, &cfg.Client.InternalName},
		{"type", raw.Client.Type, &cfg.Client.Type},
		{"description", raw.Client.Description, &cfg.Client.Description},
		{"identifier", raw.Client.Identifier, &cfg.Client.Identifier},
		{"options", raw.Client.Options, &cfg.Client.Options},
	}
	for _, c := range client {
		if meta.IsDefined("client", c.key) {
			*c.dst = strings.TrimSpace(c.raw)
		}
	}
	if meta.IsDefined("client", "encoding") {
		cfg.Client.Encoding = raw.Client.Encoding
	}

	return cfg, nil
}

// Validate reports every problem with cfg at once. An empty host is
// allowed; the CLI prompts for it.
func (c Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.HeartbeatInterval < 0 {
		errs = append(errs, errors.New("heartbeat_interval must not be negative"))
	}
	if c.WriteTimeout < 0 || c.ConnectTimeout < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	if c.UDPBind != "" {
		if _, _, err := net.SplitHostPort(c.UDPBind); err != nil {
			errs = append(errs, fmt.Errorf("udp_bind: %w", err))
		}
	}
	if c.MonitorAddr != "" {
		if _, _, err := net.SplitHostPort(c.MonitorAddr); err != nil {
			errs = append(errs, fmt.Errorf("monitor_addr: %w", err))
		}
	}
	if c.Client.Name == "" {
		errs = append(errs, errors.New("client name must not be empty"))
	}
	return errors.Join(errs...)
}

// Addr joins host and port for dialing.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Options converts the timing fields into driver options.
func (c Config) Options() transport.Options {
	opts := transport.DefaultOptions()
	opts.HeartbeatInterval = c.HeartbeatInterval
	opts.WriteTimeout = c.WriteTimeout
	opts.ConnectTimeout = c.ConnectTimeout
	opts.UDPAddr = c.UDPBind
	return opts
}

// Subscription builds the handshake body from the client block.
func (c Config) Subscription() protocol.Subscription {
	return protocol.Subscription{
		ClientName:         c.Client.Name,
		ClientInternalName: c.Client.InternalName,
		ClientType:         c.Client.Type,
		ClientDescription:  c.Client.Description,
		ClientIdentifier:   c.Client.Identifier,
		ClientOptions:      c.Client.Options,
		ClientEncoding:     c.Client.Encoding,
	}
}
