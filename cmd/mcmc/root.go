package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pior/mcmc"
)

var (
	// Global flags
	verbose bool

	// Shared state set during PersistentPreRun
	engineConfig *mcmc.Config
)

// rootCmd is the base command for mcmc.
var rootCmd = &cobra.Command{
	Use:   "mcmc",
	Short: "Minimal memcached client: raw requests and load generation",
	Long: `mcmc talks to memcached through a zero-copy response parser.
"send" prints every parsed response descriptor of a raw request,
"bench" runs a pooled mg/ms load against one or more servers.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		engineConfig = mcmc.NewConfig()
		if verbose {
			engineConfig.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}))
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log connection and I/O events to stderr")
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(benchCmd)
}
