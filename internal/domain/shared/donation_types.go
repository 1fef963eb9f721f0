package shared

// EventType defines the payment-processor event types the ledger consumes
type EventType string

const (
	EventPaymentCompleted   EventType = "payment.completed"
	EventRecurringSucceeded EventType = "payment.recurring_succeeded"
	EventRecurringFailed    EventType = "payment.recurring_failed"
)

// Known reports whether the event type is one the ledger understands
func (t EventType) Known() bool {
	switch t {
	case EventPaymentCompleted, EventRecurringSucceeded, EventRecurringFailed:
		return true
	}
	return false
}

// Succeeded reports whether the event represents a collected payment that
// must enter the sponsorship ledger
func (t EventType) Succeeded() bool {
	return t == EventPaymentCompleted || t == EventRecurringSucceeded
}

// DonationStatus defines donation processing states
type DonationStatus string

const (
	DonationStatusPending   DonationStatus = "pending"
	DonationStatusCompleted DonationStatus = "completed"
	DonationStatusFailed    DonationStatus = "failed"
	DonationStatusRefunded  DonationStatus = "refunded"
)

// Recurrence defines how a donation repeats
type Recurrence string

const (
	RecurrenceUnique  Recurrence = "unique"
	RecurrenceMonthly Recurrence = "monthly"
)

// Disposition records how the processor settled an ingested event.
// It is written to the webhook event archive, never to the ledger itself.
type Disposition string

const (
	DispositionReceived  Disposition = "RECEIVED"
	DispositionApplied   Disposition = "APPLIED"
	DispositionDuplicate Disposition = "DUPLICATE"
	DispositionOrphaned  Disposition = "ORPHANED"
	DispositionFailed    Disposition = "FAILED"
	DispositionRejected  Disposition = "REJECTED"
)
