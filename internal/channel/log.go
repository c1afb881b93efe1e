package channel

import (
	"context"
	"log/slog"

	"github.com/youmna-rabie/mcp-relay/internal/types"
)

// LogChannel writes messages to the logger instead of Slack. Used for dry runs.
type LogChannel struct {
	Logger *slog.Logger
}

func (l *LogChannel) Name() string {
	return "log"
}

// Send logs the rendered message and always succeeds.
func (l *LogChannel) Send(ctx context.Context, msg types.Message) error {
	l.Logger.InfoContext(ctx, "relaying message",
		"text", msg.Text,
		"blocks", len(msg.Blocks),
		"attachments", len(msg.Attachments),
	)
	return nil
}
