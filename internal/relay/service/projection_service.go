package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/library-circulation/internal/domain/history"
	"github.com/library-circulation/internal/domain/shared"
)

// HistoryProjector writes events into the member and loan timelines
type HistoryProjector struct {
	historyRepo history.Repository
	logger      *slog.Logger
	now         func() time.Time
}

func NewHistoryProjector(logger *slog.Logger, historyRepo history.Repository) *HistoryProjector {
	return &HistoryProjector{
		historyRepo: historyRepo,
		logger:      logger,
		now:         time.Now,
	}
}

// Project stores the event once. Kafka delivers at least once, so a replayed
// event id is treated as success.
func (p *HistoryProjector) Project(ctx context.Context, event *shared.CirculationEvent) error {
	logger := p.logger
	if event.CorrelationID != "" {
		logger = p.logger.With("correlation_id", event.CorrelationID)
	}

	entry := history.FromEvent(event, p.now().UTC())
	if err := p.historyRepo.Create(ctx, entry); err != nil {
		if errors.Is(err, history.ErrDuplicateEntry{}) {
			logger.Info("Event already projected, skipping",
				"event_id", entry.EventID,
				"type", entry.Type,
			)
			return nil
		}
		logger.Error("Failed to project event into history",
			"event_id", entry.EventID,
			"type", entry.Type,
			"error", err,
		)
		return fmt.Errorf("failed to project event %s: %w", entry.EventID, err)
	}

	logger.Info("Projected event into history",
		"event_id", entry.EventID,
		"type", entry.Type,
		"member_id", entry.MemberID,
	)
	return nil
}
