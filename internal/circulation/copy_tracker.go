package circulation

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/library-circulation/internal/domain/bookcopy"
	"github.com/library-circulation/internal/domain/shared"
)

// AvailableCopies lists the shelf copies of one book.
type AvailableCopies struct {
	BookID uuid.UUID        `json:"book_id"`
	Count  int              `json:"count"`
	Copies []*bookcopy.Copy `json:"copies"`
}

// CopyTracker handles administrative changes to copies. Moves into and out of
// ISSUED belong to the LoanLedger.
type CopyTracker struct {
	committer Committer
	repos     Repositories
	clock     shared.Clock
	logger    *slog.Logger
}

func NewCopyTracker(logger *slog.Logger, committer Committer, repos Repositories, clock shared.Clock) *CopyTracker {
	return &CopyTracker{committer: committer, repos: repos, clock: clock, logger: logger}
}

// ChangeStatus marks a copy AVAILABLE, LOST or DAMAGED.
func (t *CopyTracker) ChangeStatus(ctx context.Context, cmd ChangeCopyStatusCommand) (*bookcopy.Copy, error) {
	if err := validate(cmd); err != nil {
		return nil, err
	}
	next, err := bookcopy.ParseStatus(cmd.Status)
	if err != nil {
		return nil, err
	}

	now := t.clock()
	var bookCopy *bookcopy.Copy
	var previous bookcopy.Status
	err = t.committer.Do(ctx, func(uow UnitOfWork) error {
		var err error
		bookCopy, err = uow.Copies().LockForUpdate(ctx, cmd.CopyID)
		if err != nil {
			return err
		}
		previous = bookCopy.Status
		if err := bookCopy.ChangeStatus(next, now); err != nil {
			return err
		}
		if err := uow.Copies().UpdateStatus(ctx, bookCopy); err != nil {
			return err
		}

		event := shared.NewEvent(shared.EventCopyStatusChanged, bookCopy.ID, now)
		event.CopyID, event.BookID = &bookCopy.ID, &bookCopy.BookID
		event.CopyStatus = string(bookCopy.Status)
		return record(ctx, uow, event)
	})
	if err != nil {
		t.logger.Warn("Copy status change rejected",
			"copy_id", cmd.CopyID.String(),
			"status", cmd.Status,
			"error", err,
		)
		return nil, err
	}

	t.logger.Info("Copy status changed",
		"copy_id", cmd.CopyID.String(),
		"from", string(previous),
		"to", string(bookCopy.Status),
	)
	return bookCopy, nil
}

// Delete removes a copy that is not out on loan.
func (t *CopyTracker) Delete(ctx context.Context, copyID uuid.UUID) error {
	if err := validateID("copy_id", copyID); err != nil {
		return err
	}

	now := t.clock()
	err := t.committer.Do(ctx, func(uow UnitOfWork) error {
		bookCopy, err := uow.Copies().LockForUpdate(ctx, copyID)
		if err != nil {
			return err
		}
		open, err := uow.Loans().HasOpenLoanForCopy(ctx, copyID)
		if err != nil {
			return err
		}
		if err := bookCopy.EnsureDeletable(open); err != nil {
			return err
		}
		if err := uow.Copies().Delete(ctx, copyID); err != nil {
			return err
		}

		event := shared.NewEvent(shared.EventCopyDeleted, copyID, now)
		event.CopyID, event.BookID = &bookCopy.ID, &bookCopy.BookID
		return record(ctx, uow, event)
	})
	if err != nil {
		t.logger.Warn("Copy deletion rejected", "copy_id", copyID.String(), "error", err)
		return err
	}

	t.logger.Info("Copy deleted", "copy_id", copyID.String())
	return nil
}

// Get returns one copy.
func (t *CopyTracker) Get(ctx context.Context, copyID uuid.UUID) (*bookcopy.Copy, error) {
	return t.repos.Copies.GetByID(ctx, copyID)
}

// ListAvailableForBook returns the copies of a book that can be issued now.
func (t *CopyTracker) ListAvailableForBook(ctx context.Context, bookID uuid.UUID) (*AvailableCopies, error) {
	copies, err := t.repos.Copies.ListAvailableByBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	return &AvailableCopies{BookID: bookID, Count: len(copies), Copies: copies}, nil
}
