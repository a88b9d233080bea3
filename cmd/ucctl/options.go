package main

import (
	"fmt"
	"net"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/1ureka/ucctl/internal/config"
	"github.com/1ureka/ucctl/internal/util"
)

// rootOptions holds the persistent flags shared by every session command.
type rootOptions struct {
	configPath string
	host       string
	port       int
	monitor    string
	debug      bool
}

func (o *rootOptions) register(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVarP(&o.configPath, "config", "c", "", "Path to a TOML config file")
	f.StringVar(&o.host, "host", "", "Mixer address (prompted for when empty)")
	f.IntVarP(&o.port, "port", "p", 0, "Mixer control port (default 49162)")
	f.StringVar(&o.monitor, "monitor", "", "Serve /ws and /metrics on this address, e.g. 127.0.0.1:9100")
	f.BoolVar(&o.debug, "debug", false, "Enable debug logging")
}

// resolve loads the config file, if any, and applies the flags the user
// set on top of it.
func (o *rootOptions) resolve(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host = strings.TrimSpace(o.host)
	}
	if flags.Changed("port") {
		cfg.Port = o.port
	}
	if flags.Changed("monitor") {
		cfg.MonitorAddr = strings.TrimSpace(o.monitor)
	}
	if flags.Changed("debug") {
		cfg.Debug = o.debug
	}
	if cfg.Debug {
		util.EnableDebug()
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// session resolves the config and prompts for the host when none is set.
func (o *rootOptions) session(cmd *cobra.Command) (config.Config, error) {
	cfg, err := o.resolve(cmd)
	if err != nil {
		return config.Config{}, err
	}
	if cfg.Host == "" {
		cfg.Host = askHost()
	}
	return cfg, nil
}

// askHost prompts for the mixer address until a plausible one is entered.
func askHost() string {
	for {
		raw, _ := pterm.DefaultInteractiveTextInput.
			WithDefaultText("Mixer IP address or host name").
			Show()

		host, err := normalizeHost(raw)
		if err == nil {
			pterm.Println()
			return host
		}

		pterm.Println()
		util.LogWarning("%v", err)
	}
}

// normalizeHost trims input and rejects values that cannot be a host.
func normalizeHost(raw string) (string, error) {
	host := strings.TrimSpace(raw)
	if host == "" {
		return "", fmt.Errorf("empty host")
	}
	if strings.ContainsAny(host, " /") {
		return "", fmt.Errorf("invalid host %q", host)
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		return "", fmt.Errorf("give the port with --port, not in the host (%s)", h)
	}
	return host, nil
}
