// Package reservation models a member's standing request to borrow a book.
package reservation

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/library-circulation/internal/domain/shared"
)

// Status is the lifecycle state of a reservation.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// ParseStatus converts user input into a Status.
func ParseStatus(s string) (Status, error) {
	status := Status(strings.ToUpper(strings.TrimSpace(s)))
	switch status {
	case StatusPending, StatusCompleted, StatusCancelled:
		return status, nil
	}
	return "", shared.NewValidationError("status", "must be one of: PENDING, COMPLETED, CANCELLED")
}

// IsTerminal reports whether no further workflow transition applies.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Reservation is a request for a book, not a specific copy.
type Reservation struct {
	ID         uuid.UUID `json:"id"`
	MemberID   uuid.UUID `json:"member_id"`
	BookID     uuid.UUID `json:"book_id"`
	ReservedAt time.Time `json:"reserved_at"`
	Status     Status    `json:"status"`
}

// New creates a pending reservation.
func New(memberID, bookID uuid.UUID, now time.Time) *Reservation {
	return &Reservation{
		ID:         uuid.New(),
		MemberID:   memberID,
		BookID:     bookID,
		ReservedAt: now,
		Status:     StatusPending,
	}
}

// Cancel moves the reservation to CANCELLED from any state. It reports whether
// the status actually changed.
func (r *Reservation) Cancel() bool {
	if r.Status == StatusCancelled {
		return false
	}
	r.Status = StatusCancelled
	return true
}

// Complete marks the reservation fulfilled. Completing twice is a no-op;
// a cancelled reservation stays cancelled.
func (r *Reservation) Complete() (bool, error) {
	switch r.Status {
	case StatusCompleted:
		return false, nil
	case StatusCancelled:
		return false, shared.ErrInvalidTransition{
			Entity: "reservation",
			From:   string(r.Status),
			To:     string(StatusCompleted),
		}
	}
	r.Status = StatusCompleted
	return true, nil
}

// Summary is a reservation joined with member and book details.
type Summary struct {
	Reservation
	MemberName  string `json:"member_name"`
	MemberEmail string `json:"member_email"`
	BookTitle   string `json:"book_title"`
	ISBN        string `json:"isbn"`
}

// String is used in log lines.
func (r *Reservation) String() string {
	return fmt.Sprintf("reservation %s (%s) member=%s book=%s", r.ID, r.Status, r.MemberID, r.BookID)
}
