package bookcopy

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/library-circulation/internal/domain/shared"
)

// Repository defines copy persistence operations
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Copy, error)

	// LockForUpdate reads the copy and holds its row lock until the transaction ends,
	// serialising concurrent issuance of the same copy.
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Copy, error)
	UpdateStatus(ctx context.Context, c *Copy) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListAvailableByBook(ctx context.Context, bookID uuid.UUID) ([]*Copy, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrCopyNotFound indicates missing copy
type ErrCopyNotFound struct {
	CopyID uuid.UUID
}

func (e ErrCopyNotFound) Error() string {
	return "book copy not found: " + e.CopyID.String()
}

func (e ErrCopyNotFound) Kind() shared.ErrorKind { return shared.KindNotFound }

// Is matches any ErrCopyNotFound when the target carries no id.
func (e ErrCopyNotFound) Is(target error) bool {
	t, ok := target.(ErrCopyNotFound)
	if !ok {
		return false
	}
	return t.CopyID == uuid.Nil || t.CopyID == e.CopyID
}

// ErrCopyUnavailable is returned when issuing a copy that is not on the shelf.
type ErrCopyUnavailable struct {
	CopyID uuid.UUID
	Status Status
}

func (e ErrCopyUnavailable) Error() string {
	return "book copy is not available. Current status: " + string(e.Status)
}

func (e ErrCopyUnavailable) Kind() shared.ErrorKind { return shared.KindBusinessRule }

// ErrCopyInUse blocks deletion of a copy that is out on loan.
type ErrCopyInUse struct {
	CopyID uuid.UUID
}

func (e ErrCopyInUse) Error() string {
	return "cannot delete book copy " + e.CopyID.String() + ": it is currently issued"
}

func (e ErrCopyInUse) Kind() shared.ErrorKind { return shared.KindBusinessRule }
