// Package loan models the record of a copy lent to a member for an interval.
package loan

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/library-circulation/internal/domain/shared"
)

// Loan is an issue record. A nil ReturnDate means the copy is still out.
type Loan struct {
	ID             uuid.UUID  `json:"id"`
	MemberID       uuid.UUID  `json:"member_id"`
	CopyID         uuid.UUID  `json:"copy_id"`
	IssueDate      time.Time  `json:"issue_date"`
	DueDate        time.Time  `json:"due_date"`
	ReturnDate     *time.Time `json:"return_date,omitempty"`
	IdempotencyKey *string    `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
}

// New opens a loan issued today. The due date may not precede the issue date.
func New(memberID, copyID uuid.UUID, today, dueDate time.Time, idempotencyKey string) (*Loan, error) {
	issueDate := shared.DateOf(today)
	dueDate = shared.DateOf(dueDate)
	if dueDate.Before(issueDate) {
		return nil, shared.NewValidationError("due_date", "must not be before the issue date")
	}

	l := &Loan{
		ID:        uuid.New(),
		MemberID:  memberID,
		CopyID:    copyID,
		IssueDate: issueDate,
		DueDate:   dueDate,
		CreatedAt: today,
	}
	if key := strings.TrimSpace(idempotencyKey); key != "" {
		l.IdempotencyKey = &key
	}
	return l, nil
}

// IsOpen reports whether the copy has not been returned yet.
func (l *Loan) IsOpen() bool {
	return l.ReturnDate == nil
}

// IsOverdue reports whether an open loan is past its due date on the given day.
func (l *Loan) IsOverdue(today time.Time) bool {
	return l.IsOpen() && shared.DateOf(l.DueDate).Before(shared.DateOf(today))
}

// DaysOverdue counts whole days past the due date as of asOf, never negative.
func (l *Loan) DaysOverdue(asOf time.Time) int {
	return max(0, shared.DaysBetween(l.DueDate, asOf))
}

// Close records the return and reports how many days late it was.
func (l *Loan) Close(today time.Time) (int, error) {
	if !l.IsOpen() {
		return 0, ErrAlreadyReturned{LoanID: l.ID, ReturnDate: *l.ReturnDate}
	}
	returned := shared.DateOf(today)
	l.ReturnDate = &returned
	return l.DaysOverdue(returned), nil
}

// Summary is a loan joined with the reference data shown in listings.
type Summary struct {
	Loan
	MemberName  string    `json:"member_name"`
	MemberEmail string    `json:"member_email"`
	BookID      uuid.UUID `json:"book_id"`
	BookTitle   string    `json:"book_title"`
	ISBN        string    `json:"isbn"`
	Barcode     string    `json:"barcode"`
	CopyStatus  string    `json:"copy_status"`
	IsOverdue   bool      `json:"is_overdue"`
}
