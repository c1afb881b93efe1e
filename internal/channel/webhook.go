package channel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/slack-go/slack"
	"github.com/youmna-rabie/mcp-relay/internal/types"
)

// WebhookChannel posts to a Slack incoming webhook. It holds no session state,
// so it can always be attempted.
type WebhookChannel struct {
	url       string
	channelID string
	client    *http.Client
}

// NewWebhookChannel creates a WebhookChannel for url with a per-request timeout.
func NewWebhookChannel(url, channelID string, timeout time.Duration) *WebhookChannel {
	return &WebhookChannel{
		url:       url,
		channelID: channelID,
		client:    &http.Client{Timeout: timeout},
	}
}

func (w *WebhookChannel) Name() string {
	return "slack_webhook"
}

// Send posts msg as JSON. Any non-2xx response is an error.
func (w *WebhookChannel) Send(ctx context.Context, msg types.Message) error {
	if w.url == "" {
		return errors.New("slack webhook: url is not configured")
	}

	payload := &slack.WebhookMessage{
		Channel:     w.channelID,
		Text:        msg.Text,
		Attachments: msg.SlackAttachments(),
	}
	if len(msg.Blocks) > 0 {
		payload.Blocks = &slack.Blocks{BlockSet: msg.Blocks}
	}

	if err := slack.PostWebhookCustomHTTPContext(ctx, w.url, w.client, payload); err != nil {
		return fmt.Errorf("slack webhook post: %w", err)
	}
	return nil
}
