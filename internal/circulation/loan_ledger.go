package circulation

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/library-circulation/internal/config"
	"github.com/library-circulation/internal/domain/bookcopy"
	"github.com/library-circulation/internal/domain/fine"
	"github.com/library-circulation/internal/domain/loan"
	"github.com/library-circulation/internal/domain/reservation"
	"github.com/library-circulation/internal/domain/shared"
)

// IssueResult describes a completed issuance.
type IssueResult struct {
	Loan *loan.Loan
	// Replayed is set when the idempotency key matched an earlier issuance
	// and nothing new was written.
	Replayed               bool
	CompletedReservationID *uuid.UUID
}

// ReturnResult describes a closed loan.
type ReturnResult struct {
	Loan        *loan.Loan
	DaysOverdue int
	FineCreated bool
	Fine        *fine.Fine
}

// LoanDetail is a loan with its fine, if one was assessed.
type LoanDetail struct {
	*loan.Summary
	Fine *fine.Fine `json:"fine"`
}

// LoanLedger issues and returns copies.
type LoanLedger struct {
	committer Committer
	repos     Repositories
	policy    fine.Policy
	fifo      bool
	clock     shared.Clock
	logger    *slog.Logger
}

func NewLoanLedger(logger *slog.Logger, committer Committer, repos Repositories, cfg config.CirculationConfig, clock shared.Clock) *LoanLedger {
	return &LoanLedger{
		committer: committer,
		repos:     repos,
		policy:    fine.Policy{DailyRate: cfg.DailyFineRate},
		fifo:      cfg.EnforceReservationQueue,
		clock:     clock,
		logger:    logger,
	}
}

// Issue lends a copy. The copy row stays locked from the availability check
// until commit, so concurrent issuances of one copy serialise and the loser
// sees it ISSUED.
func (l *LoanLedger) Issue(ctx context.Context, cmd IssueCommand) (*IssueResult, error) {
	if err := validate(cmd); err != nil {
		return nil, err
	}
	cmd = cmd.normalized()
	dueDate, err := shared.ParseDate(cmd.DueDate)
	if err != nil {
		return nil, shared.NewValidationError("due_date", err.Error())
	}

	now := l.clock()
	today := shared.DateOf(now)
	if dueDate.Before(today) {
		return nil, shared.NewValidationError("due_date", "must not be before today")
	}

	var result *IssueResult
	err = l.committer.Do(ctx, func(uow UnitOfWork) error {
		bookCopy, err := uow.Copies().LockForUpdate(ctx, cmd.CopyID)
		if err != nil {
			return err
		}

		// Looked up under the copy lock, so a retry that waited on the lock
		// sees the loan its twin committed.
		if cmd.IdempotencyKey != "" {
			existing, err := uow.Loans().GetByIdempotencyKey(ctx, cmd.IdempotencyKey)
			if err != nil {
				return err
			}
			if existing != nil {
				result, err = replay(existing, cmd)
				return err
			}
		}

		if bookCopy.Status != bookcopy.StatusAvailable {
			return bookcopy.ErrCopyUnavailable{CopyID: bookCopy.ID, Status: bookCopy.Status}
		}

		if _, err := uow.Catalog().GetMember(ctx, cmd.MemberID); err != nil {
			return err
		}

		owed, err := uow.Fines().TotalUnpaidByMember(ctx, cmd.MemberID)
		if err != nil {
			return err
		}
		if owed.IsPositive() {
			return fine.ErrOutstandingBalance{MemberID: cmd.MemberID, Total: owed}
		}

		pending, err := l.reservationToComplete(ctx, uow, cmd.MemberID, bookCopy.BookID)
		if err != nil {
			return err
		}

		newLoan, err := loan.New(cmd.MemberID, cmd.CopyID, now, dueDate, cmd.IdempotencyKey)
		if err != nil {
			return err
		}
		if err := bookCopy.Issue(now); err != nil {
			return err
		}
		if err := uow.Copies().UpdateStatus(ctx, bookCopy); err != nil {
			return err
		}
		if err := uow.Loans().Create(ctx, newLoan); err != nil {
			return err
		}

		event := shared.NewEvent(shared.EventLoanIssued, newLoan.ID, now)
		event.LoanID, event.MemberID, event.CopyID, event.BookID = &newLoan.ID, &newLoan.MemberID, &bookCopy.ID, &bookCopy.BookID
		if err := record(ctx, uow, event); err != nil {
			return err
		}

		result = &IssueResult{Loan: newLoan}

		if pending != nil {
			if _, err := pending.Complete(); err != nil {
				return err
			}
			if err := uow.Reservations().UpdateStatus(ctx, pending.ID, pending.Status); err != nil {
				return err
			}
			completed := shared.NewEvent(shared.EventReservationCompleted, pending.ID, now)
			completed.ReservationID, completed.MemberID, completed.BookID = &pending.ID, &pending.MemberID, &pending.BookID
			if err := record(ctx, uow, completed); err != nil {
				return err
			}
			result.CompletedReservationID = &pending.ID
		}
		return nil
	})
	if err != nil {
		if replayed, ok := l.replayAfterRace(ctx, cmd, err); ok {
			return replayed, nil
		}
		l.logger.Warn("Issue rejected",
			"member_id", cmd.MemberID.String(),
			"copy_id", cmd.CopyID.String(),
			"error", err,
		)
		return nil, err
	}

	if result.Replayed {
		l.logger.Info("Issue replayed from idempotency key",
			"loan_id", result.Loan.ID.String(),
			"idempotency_key", cmd.IdempotencyKey,
		)
	} else {
		l.logger.Info("Copy issued",
			"loan_id", result.Loan.ID.String(),
			"member_id", cmd.MemberID.String(),
			"copy_id", cmd.CopyID.String(),
			"due_date", cmd.DueDate,
		)
	}
	return result, nil
}

// replayAfterRace recovers a keyed retry that lost to its twin: the copy was
// already issued to it, or the key insert collided. The winner's loan is the
// answer when it matches cmd.
func (l *LoanLedger) replayAfterRace(ctx context.Context, cmd IssueCommand, err error) (*IssueResult, bool) {
	if cmd.IdempotencyKey == "" {
		return nil, false
	}
	var reused loan.ErrIdempotencyKeyReused
	var unavailable bookcopy.ErrCopyUnavailable
	if !errors.As(err, &reused) && !errors.As(err, &unavailable) {
		return nil, false
	}

	existing, lookupErr := l.repos.Loans.GetByIdempotencyKey(ctx, cmd.IdempotencyKey)
	if lookupErr != nil || existing == nil {
		return nil, false
	}
	result, replayErr := replay(existing, cmd)
	if replayErr != nil {
		return nil, false
	}
	l.logger.Info("Issue replayed after concurrent retry",
		"loan_id", existing.ID.String(),
		"idempotency_key", cmd.IdempotencyKey,
	)
	return result, true
}

func replay(existing *loan.Loan, cmd IssueCommand) (*IssueResult, error) {
	if existing.MemberID != cmd.MemberID || existing.CopyID != cmd.CopyID {
		return nil, loan.ErrIdempotencyKeyReused{Key: cmd.IdempotencyKey}
	}
	return &IssueResult{Loan: existing, Replayed: true}, nil
}

// reservationToComplete finds the reservation an issuance fulfils. Without
// queue enforcement it is the member's own pending reservation, if any. With
// it, the book's queue must be empty or headed by this member.
func (l *LoanLedger) reservationToComplete(ctx context.Context, uow UnitOfWork, memberID, bookID uuid.UUID) (*reservation.Reservation, error) {
	if !l.fifo {
		return uow.Reservations().FindPending(ctx, memberID, bookID)
	}

	queue, err := uow.Reservations().ListPendingForBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if len(queue) == 0 {
		return nil, nil
	}
	head := queue[0].Reservation
	if head.MemberID != memberID {
		return nil, reservation.ErrReservationQueued{BookID: bookID, HeadMemberID: head.MemberID}
	}
	return uow.Reservations().LockForUpdate(ctx, head.ID)
}

// Return closes a loan, puts the copy back on the shelf and fines late returns.
// A fine already assessed while the loan was open is kept as is.
func (l *LoanLedger) Return(ctx context.Context, loanID uuid.UUID) (*ReturnResult, error) {
	if err := validateID("loan_id", loanID); err != nil {
		return nil, err
	}

	now := l.clock()
	var result *ReturnResult
	err := l.committer.Do(ctx, func(uow UnitOfWork) error {
		current, err := uow.Loans().LockForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		daysOverdue, err := current.Close(now)
		if err != nil {
			return err
		}
		if err := uow.Loans().MarkReturned(ctx, current.ID, *current.ReturnDate); err != nil {
			return err
		}

		bookCopy, err := uow.Copies().LockForUpdate(ctx, current.CopyID)
		if err != nil {
			return err
		}
		if err := bookCopy.Release(now); err != nil {
			return err
		}
		if err := uow.Copies().UpdateStatus(ctx, bookCopy); err != nil {
			return err
		}

		event := shared.NewEvent(shared.EventLoanReturned, current.ID, now)
		event.LoanID, event.MemberID, event.CopyID, event.BookID = &current.ID, &current.MemberID, &bookCopy.ID, &bookCopy.BookID
		event.DaysOverdue = daysOverdue
		if err := record(ctx, uow, event); err != nil {
			return err
		}

		result = &ReturnResult{Loan: current, DaysOverdue: daysOverdue}
		if daysOverdue == 0 {
			return nil
		}

		existing, err := uow.Fines().GetByLoanID(ctx, current.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			result.Fine = existing
			return nil
		}

		assessed, err := fine.New(current.ID, l.policy.AmountFor(daysOverdue), now)
		if err != nil {
			return err
		}
		if err := uow.Fines().Create(ctx, assessed); err != nil {
			return err
		}
		if err := record(ctx, uow, fineAssessedEvent(assessed, current, daysOverdue, now)); err != nil {
			return err
		}
		result.Fine, result.FineCreated = assessed, true
		return nil
	})
	if err != nil {
		l.logger.Warn("Return rejected", "loan_id", loanID.String(), "error", err)
		return nil, err
	}

	l.logger.Info("Copy returned",
		"loan_id", loanID.String(),
		"days_overdue", result.DaysOverdue,
		"fine_created", result.FineCreated,
	)
	return result, nil
}

// List returns loans matching filter, evaluating overdue against today.
func (l *LoanLedger) List(ctx context.Context, filter loan.Filter) ([]*loan.Summary, error) {
	filter.AsOf = shared.DateOf(l.clock())
	return l.repos.Loans.List(ctx, filter)
}

// ListForMember returns every loan of a member, newest first.
func (l *LoanLedger) ListForMember(ctx context.Context, memberID uuid.UUID) ([]*loan.Summary, error) {
	return l.List(ctx, loan.Filter{MemberID: &memberID})
}

// Get returns one loan with its derived overdue flag and fine.
func (l *LoanLedger) Get(ctx context.Context, loanID uuid.UUID) (*LoanDetail, error) {
	summary, err := l.repos.Loans.GetSummary(ctx, loanID, shared.DateOf(l.clock()))
	if err != nil {
		return nil, err
	}
	assessed, err := l.repos.Fines.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	return &LoanDetail{Summary: summary, Fine: assessed}, nil
}
