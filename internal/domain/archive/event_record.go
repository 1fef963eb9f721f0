// Package archive holds the append-only audit trail of webhook traffic and
// reconciliation runs. Records here are evidence, never ledger state: the
// sweep and support tooling read them, nothing recomputes money from them.
package archive

import (
	"time"

	"github.com/google/uuid"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/shared"
)

// EventRecord is one archived webhook delivery. The raw payload is kept
// verbatim so disputed payments can be replayed against the provider's logs.
type EventRecord struct {
	ID            uuid.UUID          `bson:"_id" json:"id"`
	EventID       uuid.UUID          `bson:"event_id" json:"event_id"`
	Type          shared.EventType   `bson:"type" json:"type"`
	SessionID     string             `bson:"session_id" json:"session_id"`
	Payload       string             `bson:"payload" json:"payload"`
	Disposition   shared.Disposition `bson:"disposition" json:"disposition"`
	Detail        string             `bson:"detail,omitempty" json:"detail,omitempty"`
	CorrelationID string             `bson:"correlation_id,omitempty" json:"correlation_id,omitempty"`
	ReceivedAt    time.Time          `bson:"received_at" json:"received_at"`
	SettledAt     *time.Time         `bson:"settled_at,omitempty" json:"settled_at,omitempty"`
}

// NewEventRecord archives a freshly verified webhook delivery. The processor
// upgrades the disposition once the event settles.
func NewEventRecord(evt *shared.DonationEvent, payload []byte) *EventRecord {
	return &EventRecord{
		ID:            uuid.New(),
		EventID:       evt.EventID,
		Type:          evt.Type,
		SessionID:     evt.SessionID,
		Payload:       string(payload),
		Disposition:   shared.DispositionReceived,
		CorrelationID: evt.CorrelationID,
		ReceivedAt:    time.Now(),
	}
}
