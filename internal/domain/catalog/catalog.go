// Package catalog exposes the read-only reference data the circulation
// workflow consults: members and books.
package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/library-circulation/internal/domain/shared"
)

// Member is a registered library user.
type Member struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  string    `json:"role"`
}

// Book is a catalogue title.
type Book struct {
	ID    uuid.UUID `json:"id"`
	ISBN  string    `json:"isbn"`
	Title string    `json:"title"`
}

// Repository looks up reference data.
type Repository interface {
	GetMember(ctx context.Context, id uuid.UUID) (*Member, error)
	GetBook(ctx context.Context, id uuid.UUID) (*Book, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrMemberNotFound indicates missing member
type ErrMemberNotFound struct {
	MemberID uuid.UUID
}

func (e ErrMemberNotFound) Error() string {
	return "user not found: " + e.MemberID.String()
}

func (e ErrMemberNotFound) Kind() shared.ErrorKind { return shared.KindNotFound }

// ErrBookNotFound indicates missing book
type ErrBookNotFound struct {
	BookID uuid.UUID
}

func (e ErrBookNotFound) Error() string {
	return "book not found: " + e.BookID.String()
}

func (e ErrBookNotFound) Kind() shared.ErrorKind { return shared.KindNotFound }
