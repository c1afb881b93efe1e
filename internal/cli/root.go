package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "relay",
	Short: "MCP to Slack notification relay",
	Long: "relay receives signed MyCarrierPackets webhooks and posts them to Slack, " +
		"over a Socket Mode session when it is up and an incoming webhook otherwise.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to an optional YAML configuration file; environment variables override it")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
