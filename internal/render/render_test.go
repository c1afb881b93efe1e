package render

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/youmna-rabie/mcp-relay/internal/types"
)

func event(eventType, data string) types.InboundEvent {
	return types.InboundEvent{
		EventType:     eventType,
		EventDateTime: time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC),
		EventData:     json.RawMessage(data),
	}
}

func fieldTexts(t *testing.T, msg types.Message) []string {
	t.Helper()
	require.NotEmpty(t, msg.Attachments)
	require.NotEmpty(t, msg.Attachments[0].Blocks)
	section, ok := msg.Attachments[0].Blocks[0].(*slack.SectionBlock)
	require.True(t, ok, "first attachment block should be a section")

	out := make([]string, 0, len(section.Fields))
	for _, f := range section.Fields {
		out = append(out, f.Text)
	}
	return out
}

func TestRender_PacketCompleted(t *testing.T) {
	ev := event(types.EventPacketCompleted, `{"legalName":"Acme Freight LLC","dotNumber":1234567,"mcNumber":"MC-99","completedBy":"ops@acme.test"}`)

	msg, err := Render(ev)
	require.NoError(t, err)

	assert.Equal(t, "Carrier Packet Completed: Acme Freight LLC", msg.Text)
	require.Len(t, msg.Blocks, 1)
	header, ok := msg.Blocks[0].(*slack.HeaderBlock)
	require.True(t, ok)
	assert.Contains(t, header.Text.Text, "Carrier Packet Completed")

	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, ColorSuccess, msg.Attachments[0].Color)

	fields := fieldTexts(t, msg)
	assert.Contains(t, fields, "*Carrier*\nAcme Freight LLC")
	assert.Contains(t, fields, "*DOT #*\n1234567")
	assert.Contains(t, fields, "*MC #*\nMC-99")
	assert.Contains(t, fields, "*Completed By*\nops@acme.test")
}

func TestRender_IncidentReportColors(t *testing.T) {
	tests := []struct {
		eventType string
		color     string
		title     string
	}{
		{types.EventIncidentReportCreated, ColorDanger, "Incident Report Created"},
		{types.EventIncidentReportUpdated, ColorWarning, "Incident Report Updated"},
		{types.EventIncidentReportRetracted, ColorNeutral, "Incident Report Retracted"},
		{types.EventVINVerificationCompleted, ColorSuccess, "VIN Verification Completed"},
		{types.EventUserVerificationCompleted, ColorSuccess, "User Verification Completed"},
	}

	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			msg, err := Render(event(tt.eventType, `{"carrierName":"Roadrunner","dotNumber":"42"}`))
			require.NoError(t, err)
			assert.Equal(t, tt.color, msg.Attachments[0].Color)
			assert.Equal(t, tt.title+": Roadrunner", msg.Text)
		})
	}
}

func TestRender_LongFieldsGetOwnSection(t *testing.T) {
	ev := event(types.EventIncidentReportCreated, `{"carrierName":"Roadrunner","description":"Double brokered load"}`)

	msg, err := Render(ev)
	require.NoError(t, err)

	blocks := msg.Attachments[0].Blocks
	require.Len(t, blocks, 3, "fields, description, context")
	desc, ok := blocks[1].(*slack.SectionBlock)
	require.True(t, ok)
	assert.Equal(t, "*Description*\nDouble brokered load", desc.Text.Text)
	_, ok = blocks[2].(*slack.ContextBlock)
	assert.True(t, ok)
}

func TestRender_OversizedValuesFitSlackLimits(t *testing.T) {
	long := strings.Repeat("x", 5000)
	data, err := json.Marshal(map[string]string{
		"carrierName": strings.Repeat("c", 3000),
		"description": long,
	})
	require.NoError(t, err)

	msg, err := Render(event(types.EventIncidentReportCreated, string(data)))
	require.NoError(t, err)

	blocks := msg.Attachments[0].Blocks
	for _, f := range blocks[0].(*slack.SectionBlock).Fields {
		assert.LessOrEqual(t, utf8.RuneCountInString(f.Text), 2000)
	}
	desc := blocks[1].(*slack.SectionBlock)
	assert.LessOrEqual(t, utf8.RuneCountInString(desc.Text.Text), 3000)
	assert.True(t, strings.HasSuffix(desc.Text.Text, "…"))
}

func TestRender_GenericValuesFitSlackLimits(t *testing.T) {
	data, err := json.Marshal(map[string]string{"note": strings.Repeat("n", 4000)})
	require.NoError(t, err)

	msg, err := Render(event("carrier.something.else", string(data)))
	require.NoError(t, err)

	for _, text := range fieldTexts(t, msg) {
		assert.LessOrEqual(t, utf8.RuneCountInString(text), 2000)
	}
}

func TestTruncate_KeepsRunesWhole(t *testing.T) {
	in := strings.Repeat("é", 2000)
	out := truncate(in, 2899)

	assert.True(t, utf8.ValidString(out), "truncated text must stay valid UTF-8")
	assert.LessOrEqual(t, len(out), 2899+len("…"))
	assert.Equal(t, "abc", truncate("abc", 10))
	assert.Equal(t, "ab…", truncate("abcdef", 2))
}

func TestRender_NestedKeys(t *testing.T) {
	ev := event(types.EventVINVerificationCompleted, `{"vehicle":{"vin":"1FUJGLDR12LM12345"},"carrier":{"legalName":"Nested Co","dotNumber":7}}`)

	msg, err := Render(ev)
	require.NoError(t, err)

	fields := fieldTexts(t, msg)
	assert.Contains(t, fields, "*VIN*\n1FUJGLDR12LM12345")
	assert.Contains(t, fields, "*Carrier*\nNested Co")
	assert.Contains(t, fields, "*DOT #*\n7")
}

func TestRender_MissingCarrierFallsBackToEventType(t *testing.T) {
	msg, err := Render(event(types.EventPacketCompleted, `{}`))
	require.NoError(t, err)
	assert.Equal(t, "Carrier Packet Completed: carrier.packet.completed", msg.Text)
	// Only the context block remains.
	require.Len(t, msg.Attachments[0].Blocks, 1)
}

func TestRender_UnknownTypeUsesGenericLayout(t *testing.T) {
	msg, err := Render(event("carrier.something.new", `{"b":"two","a":1,"nested":{"x":1}}`))
	require.NoError(t, err)

	assert.Equal(t, "MCP Event: carrier.something.new", msg.Text)
	assert.Equal(t, ColorNeutral, msg.Attachments[0].Color)
	assert.Equal(t, []string{"*a*\n1", "*b*\ntwo"}, fieldTexts(t, msg))
}

func TestRender_GenericNonObjectData(t *testing.T) {
	msg, err := Render(event("carrier.list", `[1,2,3]`))
	require.NoError(t, err)

	section, ok := msg.Attachments[0].Blocks[0].(*slack.SectionBlock)
	require.True(t, ok)
	assert.Equal(t, "```[1,2,3]```", section.Text.Text)
}

func TestRender_GenericCapsFields(t *testing.T) {
	parts := make([]string, 0, 15)
	for i := 0; i < 15; i++ {
		parts = append(parts, fmt.Sprintf(`"k%02d":"v"`, i))
	}
	msg, err := Render(event("carrier.wide", "{"+strings.Join(parts, ",")+"}"))
	require.NoError(t, err)
	assert.Len(t, fieldTexts(t, msg), maxFields)
}

func TestRender_Errors(t *testing.T) {
	_, err := Render(event("", `{}`))
	assert.ErrorIs(t, err, ErrEmptyEventType)

	_, err = Render(event(types.EventPacketCompleted, `{not json`))
	assert.Error(t, err)
}

func TestRender_NullData(t *testing.T) {
	msg, err := Render(event(types.EventPacketCompleted, `null`))
	require.NoError(t, err)
	assert.NotEmpty(t, msg.Text)
}

func TestRender_MarshalsToSlackJSON(t *testing.T) {
	msg, err := Render(event(types.EventPacketCompleted, `{"legalName":"Acme"}`))
	require.NoError(t, err)

	atts := msg.SlackAttachments()
	require.Len(t, atts, 1)
	assert.Equal(t, msg.Text, atts[0].Fallback)

	raw, err := json.Marshal(atts[0])
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"color":"#2eb67d"`)
	assert.Contains(t, string(raw), `"type":"section"`)
}

func TestSupported(t *testing.T) {
	assert.Equal(t, []string{
		types.EventIncidentReportCreated,
		types.EventIncidentReportRetracted,
		types.EventIncidentReportUpdated,
		types.EventPacketCompleted,
		types.EventUserVerificationCompleted,
		types.EventVINVerificationCompleted,
	}, Supported())
}
