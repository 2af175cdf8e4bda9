package shared

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType names a committed circulation change.
type EventType string

const (
	EventLoanIssued           EventType = "loan.issued"
	EventLoanReturned         EventType = "loan.returned"
	EventFineAssessed         EventType = "fine.assessed"
	EventFinePaid             EventType = "fine.paid"
	EventReservationCreated   EventType = "reservation.created"
	EventReservationCancelled EventType = "reservation.cancelled"
	EventReservationCompleted EventType = "reservation.completed"
	EventCopyStatusChanged    EventType = "copy.status_changed"
	EventCopyDeleted          EventType = "copy.deleted"
)

// AggregateType returns the aggregate an event type belongs to.
func (t EventType) AggregateType() string {
	switch t {
	case EventLoanIssued, EventLoanReturned:
		return "loan"
	case EventFineAssessed, EventFinePaid:
		return "fine"
	case EventReservationCreated, EventReservationCancelled, EventReservationCompleted:
		return "reservation"
	case EventCopyStatusChanged, EventCopyDeleted:
		return "copy"
	default:
		return "unknown"
	}
}

// CirculationEvent is the payload stored in the outbox and published to Kafka.
// Only the identifiers relevant to the event type are set.
type CirculationEvent struct {
	EventID       uuid.UUID        `json:"event_id"`
	Type          EventType        `json:"type"`
	AggregateID   uuid.UUID        `json:"aggregate_id"`
	MemberID      *uuid.UUID       `json:"member_id,omitempty"`
	BookID        *uuid.UUID       `json:"book_id,omitempty"`
	CopyID        *uuid.UUID       `json:"copy_id,omitempty"`
	LoanID        *uuid.UUID       `json:"loan_id,omitempty"`
	FineID        *uuid.UUID       `json:"fine_id,omitempty"`
	ReservationID *uuid.UUID       `json:"reservation_id,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	DaysOverdue   int              `json:"days_overdue,omitempty"`
	CopyStatus    string           `json:"copy_status,omitempty"`
	ActorID       string           `json:"actor_id,omitempty"`
	CorrelationID string           `json:"correlation_id,omitempty"`
	OccurredAt    time.Time        `json:"occurred_at"`
}

// NewEvent stamps a fresh event id and time.
func NewEvent(eventType EventType, aggregateID uuid.UUID, occurredAt time.Time) *CirculationEvent {
	return &CirculationEvent{
		EventID:     uuid.New(),
		Type:        eventType,
		AggregateID: aggregateID,
		OccurredAt:  occurredAt.UTC(),
	}
}

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)
