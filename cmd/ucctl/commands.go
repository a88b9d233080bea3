package main

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/1ureka/ucctl/internal/app"
	"github.com/1ureka/ucctl/internal/mixer"
	"github.com/1ureka/ucctl/internal/protocol"
)

const defaultLinger = 500 * time.Millisecond

// runSession resolves the config and runs action against the mixer.
func runSession(cmd *cobra.Command, opts *rootOptions, action app.Action) error {
	cfg, err := opts.session(cmd)
	if err != nil {
		return err
	}
	pterm.Info.Println(fmt.Sprintf("ucctl v%s, mixer %s", version, cfg.Addr()))
	pterm.Println()
	return app.Run(cmd.Context(), cfg, action)
}

// withLinger keeps the session open briefly so the mixer's echo of a change
// is printed before disconnecting.
func withLinger(action app.Action, linger time.Duration) app.Action {
	if linger <= 0 {
		return action
	}
	return app.Sequence(action, app.Linger(linger))
}

func watchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Subscribe and print every packet until Ctrl+C",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd, opts, nil)
		},
	}
}

func setCmd(opts *rootOptions) *cobra.Command {
	var linger time.Duration

	cmd := &cobra.Command{
		Use:   "set <name> <value>",
		Short: "Set a named parameter, e.g. set line/ch1/volume 0.7",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := mixer.ParseValue(args[1])
			if err != nil {
				return err
			}
			return runSession(cmd, opts, withLinger(app.SetParam(args[0], value), linger))
		},
	}
	cmd.Flags().DurationVar(&linger, "linger", defaultLinger, "How long to keep watching after the change")
	return cmd
}

func bypassCmd(opts *rootOptions) *cobra.Command {
	var (
		linger   time.Duration
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "bypass <on|off|cycle>",
		Short: "Switch the global mixer bypass",
		Long: `Switch the global mixer bypass on or off. "cycle" turns it off, on and
off again with --interval between steps.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.EqualFold(args[0], "cycle") {
				return runSession(cmd, opts, withLinger(app.BypassCycle(interval), linger))
			}
			on, err := parseSwitch(args[0])
			if err != nil {
				return err
			}
			return runSession(cmd, opts, withLinger(app.Bypass(on), linger))
		},
	}
	cmd.Flags().DurationVar(&linger, "linger", defaultLinger, "How long to keep watching after the change")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "Pause between cycle steps")
	return cmd
}

func muteCmd(opts *rootOptions) *cobra.Command {
	var linger time.Duration

	cmd := &cobra.Command{
		Use:   "mute <channel> <on|off>",
		Short: fmt.Sprintf("Mute or unmute a line input (1 ~ %d)", mixer.Channels),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ch, err := parseChannel(args[0])
			if err != nil {
				return err
			}
			on, err := parseSwitch(args[1])
			if err != nil {
				return err
			}
			return runSession(cmd, opts, withLinger(app.Mute(ch, on), linger))
		},
	}
	cmd.Flags().DurationVar(&linger, "linger", defaultLinger, "How long to keep watching after the change")
	return cmd
}

func volumeCmd(opts *rootOptions) *cobra.Command {
	var linger time.Duration

	cmd := &cobra.Command{
		Use:   "volume <channel> <level>",
		Short: "Set a line input fader to a level between 0 and 1",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ch, err := parseChannel(args[0])
			if err != nil {
				return err
			}
			level, err := strconv.ParseFloat(args[1], 32)
			if err != nil {
				return fmt.Errorf("invalid level %q", args[1])
			}
			return runSession(cmd, opts, withLinger(app.Volume(ch, float32(level)), linger))
		},
	}
	cmd.Flags().DurationVar(&linger, "linger", defaultLinger, "How long to keep watching after the change")
	return cmd
}

func listCmd(opts *rootOptions) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "list <key>",
		Short: "Request a list stored on the mixer, e.g. list presets/channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd, opts, app.List(args[0], timeout, printList))
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "How long to wait for the answer")
	return cmd
}

func printList(pl protocol.ParamList) {
	pterm.Println()
	pterm.DefaultSection.Println(pl.Name)
	if len(pl.Items) == 0 {
		pterm.Println("  (empty)")
		return
	}
	items := make([]pterm.BulletListItem, 0, len(pl.Items))
	for _, it := range pl.Items {
		items = append(items, pterm.BulletListItem{Level: 0, Text: it})
	}
	pterm.DefaultBulletList.WithItems(items).Render()
}

func versionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if short {
				fmt.Println(version)
				return
			}
			fmt.Printf("  Version:    %s\n", version)
			fmt.Printf("  Go version: %s\n", runtime.Version())
			fmt.Printf("  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only version number")
	return cmd
}

// ---------------------------------------------------------------------------
// Argument parsing
// ---------------------------------------------------------------------------

func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "1", "yes":
		return true, nil
	case "off", "false", "0", "no":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

func parseChannel(s string) (int, error) {
	ch, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || ch < 1 || ch > mixer.Channels {
		return 0, fmt.Errorf("invalid channel %q: must be 1 ~ %d", s, mixer.Channels)
	}
	return ch, nil
}
