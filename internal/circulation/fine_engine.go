package circulation

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/library-circulation/internal/config"
	"github.com/library-circulation/internal/domain/fine"
	"github.com/library-circulation/internal/domain/loan"
	"github.com/library-circulation/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AssessResult reports the outcome of assessing an open loan. Fine is nil when
// the loan is not overdue.
type AssessResult struct {
	Fine        *fine.Fine
	DaysOverdue int
	Amount      decimal.Decimal
}

// PayResult reports a settlement. AlreadyPaid is set when the fine had been
// settled before and nothing changed.
type PayResult struct {
	Fine        *fine.Fine
	AlreadyPaid bool
}

// MemberFines is a member's fine statement.
type MemberFines struct {
	Fines       []*fine.Summary
	TotalUnpaid decimal.Decimal
}

// FineEngine assesses and settles fines.
type FineEngine struct {
	committer Committer
	repos     Repositories
	policy    fine.Policy
	clock     shared.Clock
	logger    *slog.Logger
}

func NewFineEngine(logger *slog.Logger, committer Committer, repos Repositories, cfg config.CirculationConfig, clock shared.Clock) *FineEngine {
	return &FineEngine{
		committer: committer,
		repos:     repos,
		policy:    fine.Policy{DailyRate: cfg.DailyFineRate},
		clock:     clock,
		logger:    logger,
	}
}

// Assess fines a loan that is still open and already overdue, using today as
// the notional return date. At most one fine exists per loan.
func (e *FineEngine) Assess(ctx context.Context, loanID uuid.UUID) (*AssessResult, error) {
	if err := validateID("loan_id", loanID); err != nil {
		return nil, err
	}

	now := e.clock()
	var result *AssessResult
	err := e.committer.Do(ctx, func(uow UnitOfWork) error {
		current, err := uow.Loans().LockForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		if !current.IsOpen() {
			return loan.ErrAlreadyReturned{LoanID: current.ID, ReturnDate: *current.ReturnDate}
		}

		existing, err := uow.Fines().GetByLoanID(ctx, current.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return fine.ErrDuplicateFine{LoanID: current.ID}
		}

		days := current.DaysOverdue(now)
		amount := e.policy.AmountFor(days)
		result = &AssessResult{DaysOverdue: days, Amount: amount}
		if !amount.IsPositive() {
			return nil
		}

		assessed, err := fine.New(current.ID, amount, now)
		if err != nil {
			return err
		}
		if err := uow.Fines().Create(ctx, assessed); err != nil {
			return err
		}
		result.Fine = assessed
		return record(ctx, uow, fineAssessedEvent(assessed, current, days, now))
	})
	if err != nil {
		e.logger.Warn("Fine assessment rejected", "loan_id", loanID.String(), "error", err)
		return nil, err
	}

	if result.Fine != nil {
		e.logger.Info("Fine assessed",
			"loan_id", loanID.String(),
			"fine_id", result.Fine.ID.String(),
			"days_overdue", result.DaysOverdue,
			"amount", result.Amount.StringFixed(2),
		)
	}
	return result, nil
}

// Pay settles a fine. Paying a settled fine succeeds without changing it.
func (e *FineEngine) Pay(ctx context.Context, fineID uuid.UUID) (*PayResult, error) {
	if err := validateID("fine_id", fineID); err != nil {
		return nil, err
	}

	now := e.clock()
	var result *PayResult
	err := e.committer.Do(ctx, func(uow UnitOfWork) error {
		current, err := uow.Fines().LockForUpdate(ctx, fineID)
		if err != nil {
			return err
		}
		owner, err := uow.Loans().GetByID(ctx, current.LoanID)
		if err != nil {
			return err
		}
		if err := authorize(ctx, owner.MemberID, "pay another member's fine"); err != nil {
			return err
		}

		if !current.Pay(now) {
			result = &PayResult{Fine: current, AlreadyPaid: true}
			return nil
		}
		if err := uow.Fines().MarkPaid(ctx, current.ID, *current.PaidDate); err != nil {
			return err
		}

		event := shared.NewEvent(shared.EventFinePaid, current.ID, now)
		event.FineID, event.LoanID, event.MemberID = &current.ID, &current.LoanID, &owner.MemberID
		event.Amount = &current.Amount
		if err := record(ctx, uow, event); err != nil {
			return err
		}
		result = &PayResult{Fine: current}
		return nil
	})
	if err != nil {
		e.logger.Warn("Fine payment rejected", "fine_id", fineID.String(), "error", err)
		return nil, err
	}

	e.logger.Info("Fine paid",
		"fine_id", fineID.String(),
		"amount", result.Fine.Amount.StringFixed(2),
		"already_paid", result.AlreadyPaid,
	)
	return result, nil
}

// TotalUnpaid sums a member's unpaid fines.
func (e *FineEngine) TotalUnpaid(ctx context.Context, memberID uuid.UUID) (decimal.Decimal, error) {
	return e.repos.Fines.TotalUnpaidByMember(ctx, memberID)
}

// List returns fines matching filter, unpaid first.
func (e *FineEngine) List(ctx context.Context, filter fine.Filter) ([]*fine.Summary, error) {
	return e.repos.Fines.List(ctx, filter)
}

// Get returns one fine with its loan, member and book details.
func (e *FineEngine) Get(ctx context.Context, fineID uuid.UUID) (*fine.Summary, error) {
	return e.repos.Fines.GetSummary(ctx, fineID)
}

// ListForMember returns a member's fines and what they still owe.
func (e *FineEngine) ListForMember(ctx context.Context, memberID uuid.UUID) (*MemberFines, error) {
	fines, err := e.repos.Fines.List(ctx, fine.Filter{MemberID: &memberID})
	if err != nil {
		return nil, err
	}
	return &MemberFines{Fines: fines, TotalUnpaid: fine.TotalUnpaid(fines)}, nil
}

func fineAssessedEvent(f *fine.Fine, l *loan.Loan, daysOverdue int, at time.Time) *shared.CirculationEvent {
	event := shared.NewEvent(shared.EventFineAssessed, f.ID, at)
	event.FineID, event.LoanID, event.MemberID, event.CopyID = &f.ID, &l.ID, &l.MemberID, &l.CopyID
	event.Amount = &f.Amount
	event.DaysOverdue = daysOverdue
	return event
}
