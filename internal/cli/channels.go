package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
	"github.com/youmna-rabie/mcp-relay/internal/config"
)

func init() {
	rootCmd.AddCommand(channelsCmd)
}

var channelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "Print the configured delivery path",
	RunE:  listChannels,
}

func listChannels(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-8s %-15s %-10s %s\n", "ORDER", "CHANNEL", "STATUS", "TARGET")

	sessionStatus := "disabled"
	if cfg.SessionEnabled() {
		sessionStatus = "enabled"
	}
	fmt.Fprintf(out, "%-8s %-15s %-10s %s\n", "primary", "slack_session", sessionStatus, cfg.Slack.ChannelID)

	if cfg.Delivery.DryRun {
		fmt.Fprintf(out, "%-8s %-15s %-10s %s\n", "fallback", "log", "dry-run", "stdout")
	} else {
		fmt.Fprintf(out, "%-8s %-15s %-10s %s\n", "fallback", "slack_webhook", "enabled", redactURL(cfg.Slack.WebhookURL))
	}

	fmt.Fprintf(out, "\nwebhook endpoint: %s\n", cfg.WebhookURL())
	return nil
}

// redactURL keeps only the scheme and host; incoming webhook paths are secrets.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "(invalid)"
	}
	return u.Scheme + "://" + u.Host + "/***"
}
