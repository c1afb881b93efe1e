package types

import "github.com/slack-go/slack"

// Message is the channel-agnostic rendering of one event.
type Message struct {
	Text        string        `json:"text"`
	Blocks      []slack.Block `json:"blocks,omitempty"`
	Attachments []Attachment  `json:"attachments,omitempty"`
}

// Attachment is a color-coded group of blocks shown under the main message.
type Attachment struct {
	Color  string        `json:"color"`
	Blocks []slack.Block `json:"blocks,omitempty"`
}

// SlackAttachments converts the attachments to the Slack API shape.
func (m Message) SlackAttachments() []slack.Attachment {
	if len(m.Attachments) == 0 {
		return nil
	}
	out := make([]slack.Attachment, 0, len(m.Attachments))
	for _, a := range m.Attachments {
		out = append(out, slack.Attachment{
			Color:    a.Color,
			Fallback: m.Text,
			Blocks:   slack.Blocks{BlockSet: a.Blocks},
		})
	}
	return out
}
