// Package source adapts inbound webhook producers to types.Source.
package source

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/youmna-rabie/mcp-relay/internal/rawbody"
	"github.com/youmna-rabie/mcp-relay/internal/signature"
	"github.com/youmna-rabie/mcp-relay/internal/types"
)

var (
	ErrSignatureMissing = errors.New("missing signature header")
	ErrSignatureInvalid = errors.New("invalid signature")
	ErrSecretMissing    = errors.New("webhook signing secret is not configured")
	ErrBodyNotCaptured  = errors.New("raw request body was not captured")
	ErrMalformedEvent   = errors.New("malformed event payload")
)

// MCP verifies and parses MyCarrierPackets webhook notifications. Requests
// must have passed through rawbody.Capture.
type MCP struct {
	name   string
	secret string
	now    func() time.Time
}

// NewMCP creates an MCP source checking signatures against secret.
func NewMCP(name, secret string) *MCP {
	return &MCP{name: name, secret: secret, now: time.Now}
}

func (m *MCP) Name() string {
	return m.name
}

// ValidateRequest checks the MCP-Signature header against the captured body.
func (m *MCP) ValidateRequest(r *http.Request) error {
	if r.Method != http.MethodPost {
		return fmt.Errorf("method %s not allowed, expected POST", r.Method)
	}

	received := strings.TrimSpace(r.Header.Get(signature.Header))
	if received == "" {
		return ErrSignatureMissing
	}
	if m.secret == "" {
		return ErrSecretMissing
	}

	body, ok := rawbody.FromContext(r.Context())
	if !ok {
		return ErrBodyNotCaptured
	}
	if !signature.Verify(body, received, m.secret) {
		return ErrSignatureInvalid
	}
	return nil
}

// wireEvent is the JSON shape MCP posts.
type wireEvent struct {
	EventType     string          `json:"eventType"`
	EventDateTime string          `json:"eventDateTime"`
	EventData     json.RawMessage `json:"eventData"`
}

// ParseRequest decodes the captured body into an InboundEvent.
func (m *MCP) ParseRequest(r *http.Request) (*types.InboundEvent, error) {
	body, ok := rawbody.FromContext(r.Context())
	if !ok {
		return nil, ErrBodyNotCaptured
	}

	ev, err := DecodeEvent(body)
	if err != nil {
		return nil, err
	}
	ev.ReceivedAt = m.now()
	return ev, nil
}

// DecodeEvent parses an MCP notification body. Malformed JSON and a missing
// eventType both yield ErrMalformedEvent.
func DecodeEvent(body []byte) (*types.InboundEvent, error) {
	var w wireEvent
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if strings.TrimSpace(w.EventType) == "" {
		return nil, fmt.Errorf("%w: eventType is required", ErrMalformedEvent)
	}

	return &types.InboundEvent{
		ID:            uuid.New(),
		EventType:     w.EventType,
		EventDateTime: parseEventTime(w.EventDateTime),
		EventData:     w.EventData,
		ReceivedAt:    time.Now(),
	}, nil
}

// MCP timestamps are usually RFC 3339, but older payloads omit the zone.
// An unparseable timestamp is kept as zero rather than rejecting the event.
func parseEventTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
