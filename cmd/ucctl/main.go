// Command ucctl is the CLI entry point.
//
// This tool talks to a networked mixer over its UC control protocol: it
// subscribes like the official remote app, prints every packet exchanged
// and can change mixer parameters.
//
// Without --host (or a host in the config file) it prompts for the mixer
// address interactively.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/1ureka/ucctl/internal/util"
)

var version = "dev"

func main() {
	// Root context, cancelled on Ctrl+C.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:   "ucctl",
		Short: "Control and watch a UC protocol mixer",
		Long: `ucctl connects to a mixer's UC control port, subscribes to state
updates and prints every packet in both directions.

Subcommands change parameters (bypass, mute, volume or any named
parameter) and query lists stored on the device.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.debug {
				util.EnableDebug()
			}
		},
	}
	opts.register(rootCmd)

	rootCmd.AddCommand(
		watchCmd(opts),
		setCmd(opts),
		bypassCmd(opts),
		muteCmd(opts),
		volumeCmd(opts),
		listCmd(opts),
		versionCmd(),
	)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		util.LogError("%v", err)
		pterm.Println()
		os.Exit(1)
	}
}
