// Package service declares the circulation operations the HTTP layer depends on.
package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/library-circulation/internal/circulation"
	"github.com/library-circulation/internal/domain/bookcopy"
	"github.com/library-circulation/internal/domain/fine"
	"github.com/library-circulation/internal/domain/history"
	"github.com/library-circulation/internal/domain/loan"
	"github.com/library-circulation/internal/domain/reservation"
	"github.com/shopspring/decimal"
)

// LoanService issues and returns copies
type LoanService interface {
	// Issue lends a copy. A replayed idempotency key returns the original loan
	// with Replayed set.
	Issue(ctx context.Context, cmd circulation.IssueCommand) (*circulation.IssueResult, error)

	// Return closes a loan and fines it when late.
	// Returns ErrAlreadyReturned if the loan is closed
	Return(ctx context.Context, loanID uuid.UUID) (*circulation.ReturnResult, error)

	List(ctx context.Context, filter loan.Filter) ([]*loan.Summary, error)
	ListForMember(ctx context.Context, memberID uuid.UUID) ([]*loan.Summary, error)
	Get(ctx context.Context, loanID uuid.UUID) (*circulation.LoanDetail, error)
}

// FineService assesses and settles fines
type FineService interface {
	Assess(ctx context.Context, loanID uuid.UUID) (*circulation.AssessResult, error)

	// Pay settles a fine; paying twice succeeds with AlreadyPaid set
	Pay(ctx context.Context, fineID uuid.UUID) (*circulation.PayResult, error)

	TotalUnpaid(ctx context.Context, memberID uuid.UUID) (decimal.Decimal, error)
	List(ctx context.Context, filter fine.Filter) ([]*fine.Summary, error)
	Get(ctx context.Context, fineID uuid.UUID) (*fine.Summary, error)
	ListForMember(ctx context.Context, memberID uuid.UUID) (*circulation.MemberFines, error)
}

// ReservationService manages reservation queues
type ReservationService interface {
	Create(ctx context.Context, cmd circulation.ReserveCommand) (*reservation.Reservation, error)
	Cancel(ctx context.Context, id uuid.UUID) (*reservation.Reservation, error)
	Complete(ctx context.Context, id uuid.UUID) (*reservation.Reservation, error)
	ListPendingForBook(ctx context.Context, bookID uuid.UUID) ([]*reservation.Summary, error)
	List(ctx context.Context, filter reservation.Filter) ([]*reservation.Summary, error)
	Get(ctx context.Context, id uuid.UUID) (*reservation.Summary, error)
}

// CopyService administers physical copies
type CopyService interface {
	ChangeStatus(ctx context.Context, cmd circulation.ChangeCopyStatusCommand) (*bookcopy.Copy, error)
	Delete(ctx context.Context, copyID uuid.UUID) error
	Get(ctx context.Context, copyID uuid.UUID) (*bookcopy.Copy, error)
	ListAvailableForBook(ctx context.Context, bookID uuid.UUID) (*circulation.AvailableCopies, error)
}

// HistoryService reads the projected event history
type HistoryService interface {
	// MemberTimeline returns one page of events and the total count
	MemberTimeline(ctx context.Context, memberID uuid.UUID, page, perPage int) ([]*history.Entry, int64, error)
	LoanTimeline(ctx context.Context, loanID uuid.UUID) ([]*history.Entry, error)
}

var (
	_ LoanService        = (*circulation.LoanLedger)(nil)
	_ FineService        = (*circulation.FineEngine)(nil)
	_ ReservationService = (*circulation.ReservationManager)(nil)
	_ CopyService        = (*circulation.CopyTracker)(nil)
	_ HistoryService     = (*circulation.HistoryReader)(nil)
)
