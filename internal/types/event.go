package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types published by MCP. Unknown types are still accepted and rendered generically.
const (
	EventPacketCompleted           = "carrier.packet.completed"
	EventIncidentReportCreated     = "carrier.incident_report.created"
	EventIncidentReportUpdated     = "carrier.incident_report.updated"
	EventIncidentReportRetracted   = "carrier.incident_report.retracted"
	EventVINVerificationCompleted  = "carrier.vin_verification.completed"
	EventUserVerificationCompleted = "carrier.user_verification.completed"
)

// DeliveryStatus is the outcome of relaying one event.
type DeliveryStatus string

const (
	DeliveryStatusPending      DeliveryStatus = "pending"
	DeliveryStatusDelivered    DeliveryStatus = "delivered"
	DeliveryStatusFellBack     DeliveryStatus = "fell_back"
	DeliveryStatusFailed       DeliveryStatus = "failed"
	DeliveryStatusRenderFailed DeliveryStatus = "render_failed"
)

// InboundEvent is a verified MCP webhook notification. It is not modified after parsing.
type InboundEvent struct {
	ID            uuid.UUID       `json:"id"`
	EventType     string          `json:"eventType"`
	EventDateTime time.Time       `json:"eventDateTime"`
	EventData     json.RawMessage `json:"eventData"`
	ReceivedAt    time.Time       `json:"receivedAt"`
}
