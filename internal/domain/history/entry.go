// Package history holds the read-side projection of circulation events,
// kept in MongoDB for member activity timelines.
package history

import (
	"time"

	"github.com/google/uuid"
	"github.com/library-circulation/internal/domain/shared"
)

// Entry is one projected event. Identifiers are stored as strings so the
// documents stay readable from the mongo shell.
type Entry struct {
	EventID       string           `json:"event_id" bson:"event_id"`
	Type          shared.EventType `json:"type" bson:"type"`
	MemberID      string           `json:"member_id,omitempty" bson:"member_id,omitempty"`
	BookID        string           `json:"book_id,omitempty" bson:"book_id,omitempty"`
	CopyID        string           `json:"copy_id,omitempty" bson:"copy_id,omitempty"`
	LoanID        string           `json:"loan_id,omitempty" bson:"loan_id,omitempty"`
	FineID        string           `json:"fine_id,omitempty" bson:"fine_id,omitempty"`
	ReservationID string           `json:"reservation_id,omitempty" bson:"reservation_id,omitempty"`
	Amount        string           `json:"amount,omitempty" bson:"amount,omitempty"`
	DaysOverdue   int              `json:"days_overdue,omitempty" bson:"days_overdue,omitempty"`
	CopyStatus    string           `json:"copy_status,omitempty" bson:"copy_status,omitempty"`
	ActorID       string           `json:"actor_id,omitempty" bson:"actor_id,omitempty"`
	CorrelationID string           `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	OccurredAt    time.Time        `json:"occurred_at" bson:"occurred_at"`
	RecordedAt    time.Time        `json:"recorded_at" bson:"recorded_at"`
}

// FromEvent flattens a circulation event into a history entry.
func FromEvent(event *shared.CirculationEvent, recordedAt time.Time) *Entry {
	e := &Entry{
		EventID:       event.EventID.String(),
		Type:          event.Type,
		MemberID:      idString(event.MemberID),
		BookID:        idString(event.BookID),
		CopyID:        idString(event.CopyID),
		LoanID:        idString(event.LoanID),
		FineID:        idString(event.FineID),
		ReservationID: idString(event.ReservationID),
		DaysOverdue:   event.DaysOverdue,
		CopyStatus:    event.CopyStatus,
		ActorID:       event.ActorID,
		CorrelationID: event.CorrelationID,
		OccurredAt:    event.OccurredAt,
		RecordedAt:    recordedAt,
	}
	if event.Amount != nil {
		e.Amount = event.Amount.StringFixed(2)
	}
	return e
}

func idString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
