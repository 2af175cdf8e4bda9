package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/library-circulation/internal/domain/shared"
	"github.com/library-circulation/internal/platform/messaging/producers"
	"github.com/library-circulation/internal/relay/service"
)

// HistoryEventHandler feeds circulation events from Kafka into the history projection
type HistoryEventHandler struct {
	projectionService service.ProjectionService
	producer          producers.DeadLetterPublisher
	logger            *slog.Logger
}

// NewHistoryEventHandler creates a new handler. producer may be nil when the
// DLQ is disabled.
func NewHistoryEventHandler(
	logger *slog.Logger,
	projectionService service.ProjectionService,
	producer producers.DeadLetterPublisher,
) *HistoryEventHandler {
	return &HistoryEventHandler{
		projectionService: projectionService,
		producer:          producer,
		logger:            logger,
	}
}

// HandleMessage projects one Kafka record. Unreadable records are parked in the
// DLQ and acknowledged; projection failures are returned so the offset is not
// committed.
func (h *HistoryEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	event, err := decodeEvent(value)
	if err != nil {
		h.logger.Error("Failed to decode circulation event from Kafka message",
			"error", err,
			"message_key", string(key),
		)
		return h.deadLetter(ctx, key, value, err)
	}

	logger := h.logger
	if event.CorrelationID != "" {
		logger = h.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Debug("Received circulation event",
		"event_id", event.EventID.String(),
		"type", event.Type,
		"aggregate_id", event.AggregateID.String(),
	)

	if err := h.projectionService.Project(ctx, event); err != nil {
		return fmt.Errorf("projecting event %s failed: %w", event.EventID, err)
	}
	return nil
}

func (h *HistoryEventHandler) deadLetter(ctx context.Context, key, value []byte, cause error) error {
	if h.producer == nil {
		return fmt.Errorf("failed to decode message value: %w", cause)
	}

	reason := "unreadable circulation event: " + cause.Error()
	if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, reason); dlqErr != nil {
		h.logger.Error("Failed to publish message to DLQ after decode error",
			"dlq_error", dlqErr,
			"original_error", cause,
			"message_key", string(key),
		)
		return fmt.Errorf("failed to decode message value: %w", cause)
	}
	return nil
}

func decodeEvent(value []byte) (*shared.CirculationEvent, error) {
	var event shared.CirculationEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return nil, err
	}
	if event.EventID == uuid.Nil {
		return nil, fmt.Errorf("event_id is missing")
	}
	if event.Type == "" {
		return nil, fmt.Errorf("event type is missing")
	}
	return &event, nil
}
