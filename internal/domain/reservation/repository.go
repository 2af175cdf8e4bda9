package reservation

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/library-circulation/internal/domain/shared"
)

// Filter narrows reservation listings.
type Filter struct {
	Status   *Status
	MemberID *uuid.UUID
	BookID   *uuid.UUID
}

// Repository defines reservation persistence operations
type Repository interface {
	Create(ctx context.Context, r *Reservation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Reservation, error)
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Reservation, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error

	// FindPending returns nil, nil when the member holds no pending reservation for the book.
	FindPending(ctx context.Context, memberID, bookID uuid.UUID) (*Reservation, error)

	// ListPendingForBook returns pending reservations oldest first.
	ListPendingForBook(ctx context.Context, bookID uuid.UUID) ([]*Summary, error)
	GetSummary(ctx context.Context, id uuid.UUID) (*Summary, error)
	List(ctx context.Context, filter Filter) ([]*Summary, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrReservationNotFound indicates missing reservation
type ErrReservationNotFound struct {
	ReservationID uuid.UUID
}

func (e ErrReservationNotFound) Error() string {
	return "reservation not found: " + e.ReservationID.String()
}

func (e ErrReservationNotFound) Kind() shared.ErrorKind { return shared.KindNotFound }

// ErrDuplicateReservation enforces one pending reservation per member and book.
type ErrDuplicateReservation struct {
	MemberID uuid.UUID
	BookID   uuid.UUID
}

func (e ErrDuplicateReservation) Error() string {
	return "member already has a pending reservation for book " + e.BookID.String()
}

func (e ErrDuplicateReservation) Kind() shared.ErrorKind { return shared.KindConflict }

// ErrReservationQueued is returned when strict queue order is enforced and another
// member's reservation for the book is older.
type ErrReservationQueued struct {
	BookID       uuid.UUID
	HeadMemberID uuid.UUID
}

func (e ErrReservationQueued) Error() string {
	return "book " + e.BookID.String() + " is reserved for another member who is first in the queue"
}

func (e ErrReservationQueued) Kind() shared.ErrorKind { return shared.KindConflict }
