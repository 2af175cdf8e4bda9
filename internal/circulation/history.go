package circulation

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/library-circulation/internal/domain/history"
)

// HistoryReader serves member timelines from the projected event history.
type HistoryReader struct {
	repo   history.Repository
	logger *slog.Logger
}

func NewHistoryReader(logger *slog.Logger, repo history.Repository) *HistoryReader {
	return &HistoryReader{repo: repo, logger: logger}
}

// MemberTimeline returns one page of a member's events, newest first, and the
// total number of events recorded for them.
func (h *HistoryReader) MemberTimeline(ctx context.Context, memberID uuid.UUID, page, perPage int) ([]*history.Entry, int64, error) {
	offset := (page - 1) * perPage

	entries, err := h.repo.GetByMemberID(ctx, memberID.String(), perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := h.repo.CountByMemberID(ctx, memberID.String())
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// LoanTimeline returns every event recorded against a loan, oldest first.
func (h *HistoryReader) LoanTimeline(ctx context.Context, loanID uuid.UUID) ([]*history.Entry, error) {
	return h.repo.GetByLoanID(ctx, loanID.String())
}
