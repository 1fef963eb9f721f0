package archive

import (
	"context"

	"github.com/google/uuid"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/shared"
)

// Repository defines event archive persistence operations
type Repository interface {
	// Archive appends the record. Archiving is best-effort from the caller's
	// perspective but the store itself never overwrites an existing record.
	Archive(ctx context.Context, rec *EventRecord) error

	// SetDisposition records how the processor settled the event
	SetDisposition(ctx context.Context, eventID uuid.UUID, disposition shared.Disposition, detail string) error

	GetByEventID(ctx context.Context, eventID uuid.UUID) (*EventRecord, error)

	// ListBySessionID returns every archived delivery for a payment session,
	// newest first. Retried webhooks produce multiple records per session.
	ListBySessionID(ctx context.Context, sessionID string) ([]*EventRecord, error)
}

// SweepReportStore persists reconciliation run summaries
type SweepReportStore interface {
	Insert(ctx context.Context, report *SweepReport) error

	// Latest returns nil, nil when no sweep has run yet
	Latest(ctx context.Context) (*SweepReport, error)
}

// ErrRecordNotFound indicates missing archive record
type ErrRecordNotFound struct {
	EventID uuid.UUID
}

func (e ErrRecordNotFound) Error() string {
	return "archived event not found: " + e.EventID.String()
}

// Is matches any ErrRecordNotFound when the target event id is empty
func (e ErrRecordNotFound) Is(target error) bool {
	t, ok := target.(ErrRecordNotFound)
	if !ok {
		return false
	}
	if t.EventID == uuid.Nil {
		return true
	}
	return e.EventID == t.EventID
}
