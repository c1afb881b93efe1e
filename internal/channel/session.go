package channel

import (
	"context"
	"errors"
	"fmt"

	"github.com/slack-go/slack"
	"github.com/youmna-rabie/mcp-relay/internal/types"
)

// Poster is the slice of the Slack Web API client used to post messages.
type Poster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// SessionChannel posts through the bot-token Web API client that backs the
// Socket Mode session.
type SessionChannel struct {
	api       Poster
	channelID string
}

// NewSessionChannel creates a SessionChannel posting to channelID.
func NewSessionChannel(api Poster, channelID string) *SessionChannel {
	return &SessionChannel{api: api, channelID: channelID}
}

func (s *SessionChannel) Name() string {
	return "slack_session"
}

// Send posts msg with chat.postMessage.
func (s *SessionChannel) Send(ctx context.Context, msg types.Message) error {
	if s.channelID == "" {
		return errors.New("slack session: channel id is not configured")
	}

	opts := []slack.MsgOption{slack.MsgOptionText(msg.Text, false)}
	if len(msg.Blocks) > 0 {
		opts = append(opts, slack.MsgOptionBlocks(msg.Blocks...))
	}
	if atts := msg.SlackAttachments(); len(atts) > 0 {
		opts = append(opts, slack.MsgOptionAttachments(atts...))
	}

	if _, _, err := s.api.PostMessageContext(ctx, s.channelID, opts...); err != nil {
		return fmt.Errorf("slack session post: %w", err)
	}
	return nil
}
