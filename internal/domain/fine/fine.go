// Package fine models monetary penalties for overdue loans.
package fine

import (
	"time"

	"github.com/google/uuid"
	"github.com/library-circulation/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Policy holds the fine schedule.
type Policy struct {
	DailyRate decimal.Decimal
}

// AmountFor returns the fine owed for the given number of late days.
func (p Policy) AmountFor(daysOverdue int) decimal.Decimal {
	if daysOverdue <= 0 {
		return decimal.Zero
	}
	return p.DailyRate.Mul(decimal.NewFromInt(int64(daysOverdue))).Round(2)
}

// Fine is a penalty attached to exactly one loan.
type Fine struct {
	ID        uuid.UUID       `json:"id"`
	LoanID    uuid.UUID       `json:"loan_id"`
	Amount    decimal.Decimal `json:"amount"`
	Paid      bool            `json:"paid"`
	PaidDate  *time.Time      `json:"paid_date,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// New creates an unpaid fine. Amounts must be positive.
func New(loanID uuid.UUID, amount decimal.Decimal, now time.Time) (*Fine, error) {
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("amount", "fine amount must be greater than 0")
	}
	return &Fine{
		ID:        uuid.New(),
		LoanID:    loanID,
		Amount:    amount.Round(2),
		CreatedAt: now,
	}, nil
}

// Pay settles the fine. Paying an already settled fine is a no-op that keeps
// the original paid date; the return value reports whether anything changed.
func (f *Fine) Pay(today time.Time) bool {
	if f.Paid {
		return false
	}
	paidDate := shared.DateOf(today)
	f.Paid = true
	f.PaidDate = &paidDate
	return true
}

// Summary is a fine joined with its loan, member and book for listings.
type Summary struct {
	Fine
	IssueDate   time.Time  `json:"issue_date"`
	DueDate     time.Time  `json:"due_date"`
	ReturnDate  *time.Time `json:"return_date,omitempty"`
	MemberID    uuid.UUID  `json:"member_id"`
	MemberName  string     `json:"member_name"`
	MemberEmail string     `json:"member_email"`
	BookTitle   string     `json:"book_title"`
	ISBN        string     `json:"isbn"`
	Barcode     string     `json:"barcode"`
}

// TotalUnpaid sums the unpaid amounts in a listing.
func TotalUnpaid(fines []*Summary) decimal.Decimal {
	total := decimal.Zero
	for _, f := range fines {
		if !f.Paid {
			total = total.Add(f.Amount)
		}
	}
	return total
}
