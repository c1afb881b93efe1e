package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/youmna-rabie/mcp-relay/internal/render"
	"github.com/youmna-rabie/mcp-relay/internal/source"
)

var listEventTypes bool

func init() {
	renderCmd.Flags().BoolVar(&listEventTypes, "list", false, "list event types with a dedicated template and exit")
	rootCmd.AddCommand(renderCmd)
}

var renderCmd = &cobra.Command{
	Use:   "render [file]",
	Short: "Preview the Slack message for an MCP event payload",
	Args:  cobra.MaximumNArgs(1),
	RunE:  renderPayload,
}

func renderPayload(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if listEventTypes {
		for _, t := range render.Supported() {
			fmt.Fprintln(out, t)
		}
		return nil
	}

	body, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	ev, err := source.DecodeEvent(body)
	if err != nil {
		return err
	}
	msg, err := render.Render(*ev)
	if err != nil {
		return fmt.Errorf("rendering %s: %w", ev.EventType, err)
	}

	payload := map[string]any{
		"text":        msg.Text,
		"blocks":      msg.Blocks,
		"attachments": msg.SlackAttachments(),
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
