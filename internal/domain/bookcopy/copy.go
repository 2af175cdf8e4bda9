// Package bookcopy models a physical copy of a book and the availability
// lifecycle the circulation desk drives it through.
package bookcopy

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/library-circulation/internal/domain/shared"
)

// Status is the availability state of a copy.
type Status string

const (
	StatusAvailable Status = "AVAILABLE"
	StatusIssued    Status = "ISSUED"
	StatusLost      Status = "LOST"
	StatusDamaged   Status = "DAMAGED"
)

// Statuses lists every valid status in display order.
var Statuses = []Status{StatusAvailable, StatusIssued, StatusLost, StatusDamaged}

// ParseStatus converts user input into a Status.
func ParseStatus(s string) (Status, error) {
	status := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", shared.NewValidationError("status",
			fmt.Sprintf("must be one of: %s", joinStatuses(Statuses)))
	}
	return status, nil
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusIssued, StatusLost, StatusDamaged:
		return true
	}
	return false
}

// Copy is one trackable instance of a book.
type Copy struct {
	ID        uuid.UUID `json:"id"`
	BookID    uuid.UUID `json:"book_id"`
	Barcode   string    `json:"barcode"`
	Status    Status    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Issue moves an available copy to ISSUED.
func (c *Copy) Issue(now time.Time) error {
	if c.Status != StatusAvailable {
		return ErrCopyUnavailable{CopyID: c.ID, Status: c.Status}
	}
	c.Status = StatusIssued
	c.UpdatedAt = now
	return nil
}

// Release returns an issued copy to the shelf.
func (c *Copy) Release(now time.Time) error {
	if c.Status != StatusIssued {
		return shared.ErrInvalidTransition{Entity: "copy", From: string(c.Status), To: string(StatusAvailable)}
	}
	c.Status = StatusAvailable
	c.UpdatedAt = now
	return nil
}

// ChangeStatus applies an administrative status change. ISSUED is owned by the
// loan workflow, so it can be neither entered nor left this way.
func (c *Copy) ChangeStatus(next Status, now time.Time) error {
	if !next.Valid() {
		return shared.NewValidationError("status", fmt.Sprintf("unknown status %q", next))
	}
	if c.Status == StatusIssued || next == StatusIssued {
		return shared.ErrInvalidTransition{Entity: "copy", From: string(c.Status), To: string(next)}
	}
	c.Status = next
	c.UpdatedAt = now
	return nil
}

// EnsureDeletable fails when the copy is out on loan.
func (c *Copy) EnsureDeletable(hasOpenLoan bool) error {
	if c.Status == StatusIssued || hasOpenLoan {
		return ErrCopyInUse{CopyID: c.ID}
	}
	return nil
}

func joinStatuses(statuses []Status) string {
	parts := make([]string, len(statuses))
	for i, s := range statuses {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}
