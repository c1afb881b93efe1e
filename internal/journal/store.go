package journal

import (
	"time"

	"github.com/google/uuid"
	"github.com/youmna-rabie/mcp-relay/internal/types"
)

// Record describes what happened to one relayed event. Failed records keep the
// event type and timestamp so the notification can be replayed by hand.
type Record struct {
	ID            uuid.UUID            `json:"id"`
	EventID       uuid.UUID            `json:"event_id"`
	EventType     string               `json:"event_type"`
	EventDateTime time.Time            `json:"event_date_time"`
	Status        types.DeliveryStatus `json:"status"`
	Channel       string               `json:"channel,omitempty"`
	Attempts      int                  `json:"attempts"`
	Error         string               `json:"error,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	FinishedAt    *time.Time           `json:"finished_at,omitempty"`
}

// Outcome is the final result applied to a pending record.
type Outcome struct {
	Status   types.DeliveryStatus
	Channel  string
	Attempts int
	Error    string
}

// Store defines the interface for recording delivery outcomes.
type Store interface {
	// Save adds a record. The oldest record may be evicted to make room.
	Save(rec Record) error

	// Get retrieves a record by ID. Returns ErrNotFound if absent or evicted.
	Get(id uuid.UUID) (Record, error)

	// List returns up to limit records, ordered newest-first.
	// offset skips the first N results for pagination.
	List(limit, offset int) ([]Record, error)

	// Finish applies the final outcome to the record identified by ID.
	Finish(id uuid.UUID, out Outcome) error

	// Count returns the number of records currently held.
	Count() int
}
