package loan

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/library-circulation/internal/domain/shared"
)

// Filter narrows loan listings. Zero values mean "no constraint".
type Filter struct {
	MemberID    *uuid.UUID
	OverdueOnly bool
	Returned    *bool
	AsOf        time.Time // reference day for the overdue test
}

// Repository defines loan persistence operations
type Repository interface {
	Create(ctx context.Context, l *Loan) error
	GetByID(ctx context.Context, id uuid.UUID) (*Loan, error)
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Loan, error)

	// GetByIdempotencyKey returns nil, nil when no loan carries the key.
	GetByIdempotencyKey(ctx context.Context, key string) (*Loan, error)
	MarkReturned(ctx context.Context, id uuid.UUID, returnDate time.Time) error
	HasOpenLoanForCopy(ctx context.Context, copyID uuid.UUID) (bool, error)
	GetSummary(ctx context.Context, id uuid.UUID, asOf time.Time) (*Summary, error)
	List(ctx context.Context, filter Filter) ([]*Summary, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrLoanNotFound indicates missing loan
type ErrLoanNotFound struct {
	LoanID uuid.UUID
}

func (e ErrLoanNotFound) Error() string {
	return "issue not found: " + e.LoanID.String()
}

func (e ErrLoanNotFound) Kind() shared.ErrorKind { return shared.KindNotFound }

// Is matches any ErrLoanNotFound when the target carries no id.
func (e ErrLoanNotFound) Is(target error) bool {
	t, ok := target.(ErrLoanNotFound)
	if !ok {
		return false
	}
	return t.LoanID == uuid.Nil || t.LoanID == e.LoanID
}

// ErrAlreadyReturned is returned when closing or fining a closed loan.
type ErrAlreadyReturned struct {
	LoanID     uuid.UUID
	ReturnDate time.Time
}

func (e ErrAlreadyReturned) Error() string {
	return "book has already been returned on " + e.ReturnDate.Format(shared.DateLayout)
}

func (e ErrAlreadyReturned) Kind() shared.ErrorKind { return shared.KindBusinessRule }

// ErrIdempotencyKeyReused is returned when a key is replayed with a different request.
type ErrIdempotencyKeyReused struct {
	Key string
}

func (e ErrIdempotencyKeyReused) Error() string {
	return "idempotency key " + e.Key + " was already used for a different issue request"
}

func (e ErrIdempotencyKeyReused) Kind() shared.ErrorKind { return shared.KindConflict }
