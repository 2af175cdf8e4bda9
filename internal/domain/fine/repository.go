package fine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/library-circulation/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Filter narrows fine listings.
type Filter struct {
	Paid     *bool
	MemberID *uuid.UUID
}

// Repository defines fine persistence operations
type Repository interface {
	Create(ctx context.Context, f *Fine) error
	GetByID(ctx context.Context, id uuid.UUID) (*Fine, error)
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Fine, error)

	// GetByLoanID returns nil, nil when the loan has no fine.
	GetByLoanID(ctx context.Context, loanID uuid.UUID) (*Fine, error)
	MarkPaid(ctx context.Context, id uuid.UUID, paidDate time.Time) error
	TotalUnpaidByMember(ctx context.Context, memberID uuid.UUID) (decimal.Decimal, error)
	GetSummary(ctx context.Context, id uuid.UUID) (*Summary, error)
	List(ctx context.Context, filter Filter) ([]*Summary, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrFineNotFound indicates missing fine
type ErrFineNotFound struct {
	FineID uuid.UUID
}

func (e ErrFineNotFound) Error() string {
	return "fine not found: " + e.FineID.String()
}

func (e ErrFineNotFound) Kind() shared.ErrorKind { return shared.KindNotFound }

// ErrDuplicateFine enforces one fine per loan.
type ErrDuplicateFine struct {
	LoanID uuid.UUID
}

func (e ErrDuplicateFine) Error() string {
	return "fine already exists for issue " + e.LoanID.String()
}

func (e ErrDuplicateFine) Kind() shared.ErrorKind { return shared.KindConflict }

// ErrOutstandingBalance blocks borrowing while fines are unpaid.
type ErrOutstandingBalance struct {
	MemberID uuid.UUID
	Total    decimal.Decimal
}

func (e ErrOutstandingBalance) Error() string {
	return "member has unpaid fines of " + e.Total.StringFixed(2) + ". Please pay fines before issuing books"
}

func (e ErrOutstandingBalance) Kind() shared.ErrorKind { return shared.KindBusinessRule }
