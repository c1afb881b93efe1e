// Package render turns verified MCP events into Slack block kit messages.
package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/slack-go/slack"
	"github.com/youmna-rabie/mcp-relay/internal/types"
)

// Attachment colors.
const (
	ColorSuccess = "#2eb67d"
	ColorWarning = "#ecb22e"
	ColorDanger  = "#e01e5a"
	ColorNeutral = "#868686"
)

// Slack rejects sections with more than ten fields.
// Slack block limits, kept below the hard caps to leave room for labels and
// the ellipsis.
const (
	maxFields      = 10
	maxFieldText   = 1900
	maxSectionText = 2900
	maxHeaderText  = 150
)

var ErrEmptyEventType = errors.New("render: event type is required")

// field is one labelled value pulled from eventData. keys are tried in order;
// a dotted key walks nested objects.
type field struct {
	label string
	keys  []string
	long  bool
}

type template struct {
	title  string
	emoji  string
	color  string
	fields []field
}

var (
	carrierField = field{label: "Carrier", keys: []string{"legalName", "carrierName", "companyName", "carrier.legalName", "carrier.name"}}
	dotField     = field{label: "DOT #", keys: []string{"dotNumber", "DOTNumber", "carrier.dotNumber"}}
	mcField      = field{label: "MC #", keys: []string{"mcNumber", "docketNumber", "carrier.mcNumber"}}
)

var templates = map[string]template{
	types.EventPacketCompleted: {
		title: "Carrier Packet Completed",
		emoji: ":white_check_mark:",
		color: ColorSuccess,
		fields: []field{
			carrierField, dotField, mcField,
			{label: "Completed By", keys: []string{"completedBy", "userEmail", "user.email"}},
			{label: "Packet ID", keys: []string{"packetId", "packetID", "id"}},
		},
	},
	types.EventIncidentReportCreated: {
		title:  "Incident Report Created",
		emoji:  ":rotating_light:",
		color:  ColorDanger,
		fields: incidentFields("Reported By", "reportedBy"),
	},
	types.EventIncidentReportUpdated: {
		title:  "Incident Report Updated",
		emoji:  ":pencil2:",
		color:  ColorWarning,
		fields: incidentFields("Updated By", "updatedBy"),
	},
	types.EventIncidentReportRetracted: {
		title: "Incident Report Retracted",
		emoji: ":leftwards_arrow_with_hook:",
		color: ColorNeutral,
		fields: []field{
			carrierField, dotField,
			{label: "Report ID", keys: []string{"incidentReportId", "reportId", "id"}},
			{label: "Retracted By", keys: []string{"retractedBy", "user.email"}},
			{label: "Reason", keys: []string{"reason", "comments"}, long: true},
		},
	},
	types.EventVINVerificationCompleted: {
		title: "VIN Verification Completed",
		emoji: ":truck:",
		color: ColorSuccess,
		fields: []field{
			{label: "VIN", keys: []string{"vin", "VIN", "vehicle.vin"}},
			{label: "Result", keys: []string{"result", "verificationStatus", "status"}},
			carrierField, dotField,
			{label: "Vehicle", keys: []string{"vehicleDescription", "vehicle.description", "vehicle.make"}},
		},
	},
	types.EventUserVerificationCompleted: {
		title: "User Verification Completed",
		emoji: ":bust_in_silhouette:",
		color: ColorSuccess,
		fields: []field{
			{label: "User", keys: []string{"userName", "name", "user.name", "email", "user.email"}},
			{label: "Result", keys: []string{"result", "verificationStatus", "status"}},
			carrierField, dotField,
		},
	},
}

func incidentFields(actorLabel, actorKey string) []field {
	return []field{
		carrierField, dotField, mcField,
		{label: "Report ID", keys: []string{"incidentReportId", "reportId", "id"}},
		{label: "Incident Type", keys: []string{"incidentType", "reportType", "category"}},
		{label: actorLabel, keys: []string{actorKey, "user.email"}},
		{label: "Description", keys: []string{"description", "comments", "details"}, long: true},
	}
}

// Supported returns the event types that have a dedicated template.
func Supported() []string {
	out := make([]string, 0, len(templates))
	for k := range templates {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Render builds the Slack message for ev. Unknown event types get a generic layout.
func Render(ev types.InboundEvent) (types.Message, error) {
	if strings.TrimSpace(ev.EventType) == "" {
		return types.Message{}, ErrEmptyEventType
	}

	data, err := decodeData(ev.EventData)
	if err != nil {
		return types.Message{}, fmt.Errorf("render %s: %w", ev.EventType, err)
	}

	tpl, ok := templates[ev.EventType]
	if !ok {
		return renderGeneric(ev, data), nil
	}

	var short, long []*slack.TextBlockObject
	for _, f := range tpl.fields {
		v, ok := lookupAny(data, f.keys)
		if !ok {
			continue
		}
		if f.long {
			long = append(long, mrkdwn(fmt.Sprintf("*%s*\n%s", f.label, truncate(v, maxSectionText))))
		} else {
			short = append(short, mrkdwn(fmt.Sprintf("*%s*\n%s", f.label, truncate(v, maxFieldText))))
		}
	}

	subject := ev.EventType
	if carrier, ok := lookupAny(data, carrierField.keys); ok {
		subject = carrier
	}
	text := fmt.Sprintf("%s: %s", tpl.title, subject)

	attBlocks := make([]slack.Block, 0, 3)
	if len(short) > 0 {
		attBlocks = append(attBlocks, slack.NewSectionBlock(nil, capFields(short), nil))
	}
	for _, obj := range long {
		attBlocks = append(attBlocks, slack.NewSectionBlock(obj, nil, nil))
	}
	attBlocks = append(attBlocks, eventContext(ev))

	return types.Message{
		Text: text,
		Blocks: []slack.Block{
			slack.NewHeaderBlock(plain(tpl.emoji + " " + tpl.title)),
		},
		Attachments: []types.Attachment{{Color: tpl.color, Blocks: attBlocks}},
	}, nil
}

func renderGeneric(ev types.InboundEvent, data map[string]any) types.Message {
	title := "MCP Event: " + ev.EventType

	var fields []*slack.TextBlockObject
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, ok := scalar(data[k])
		if !ok {
			continue
		}
		fields = append(fields, mrkdwn(fmt.Sprintf("*%s*\n%s", truncate(k, 100), truncate(v, maxFieldText))))
	}

	attBlocks := make([]slack.Block, 0, 2)
	if len(fields) > 0 {
		attBlocks = append(attBlocks, slack.NewSectionBlock(nil, capFields(fields), nil))
	} else if len(ev.EventData) > 0 && string(ev.EventData) != "null" {
		attBlocks = append(attBlocks, slack.NewSectionBlock(mrkdwn("```"+truncate(string(ev.EventData), maxSectionText)+"```"), nil, nil))
	}
	attBlocks = append(attBlocks, eventContext(ev))

	return types.Message{
		Text: title,
		Blocks: []slack.Block{
			slack.NewHeaderBlock(plain(":incoming_envelope: " + title)),
		},
		Attachments: []types.Attachment{{Color: ColorNeutral, Blocks: attBlocks}},
	}
}

func eventContext(ev types.InboundEvent) *slack.ContextBlock {
	when := "unknown time"
	if !ev.EventDateTime.IsZero() {
		when = ev.EventDateTime.UTC().Format(time.RFC1123)
	}
	return slack.NewContextBlock("",
		mrkdwn(fmt.Sprintf("`%s` • %s", ev.EventType, when)),
	)
}

// decodeData accepts an object, null or absent payload. Non-object JSON is
// rendered raw by the generic template, so it decodes to an empty map.
func decodeData(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return map[string]any{}, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decoding eventData: %w", err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return map[string]any{}, nil
	}
	return m, nil
}

func lookupAny(data map[string]any, keys []string) (string, bool) {
	for _, k := range keys {
		if v, ok := lookup(data, k); ok {
			return v, true
		}
	}
	return "", false
}

func lookup(data map[string]any, path string) (string, bool) {
	parts := strings.Split(path, ".")
	var cur any = data
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return "", false
		}
		cur, ok = m[p]
		if !ok {
			return "", false
		}
	}
	return scalar(cur)
}

func scalar(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		if strings.TrimSpace(x) == "" {
			return "", false
		}
		return x, true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(x), true
	default:
		return "", false
	}
}

func capFields(fields []*slack.TextBlockObject) []*slack.TextBlockObject {
	if len(fields) > maxFields {
		return fields[:maxFields]
	}
	return fields
}

// truncate cuts s to at most n bytes plus an ellipsis, never inside a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "…"
}

func plain(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.PlainTextType, truncate(text, maxHeaderText), true, false)
}

func mrkdwn(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.MarkdownType, text, false, false)
}
