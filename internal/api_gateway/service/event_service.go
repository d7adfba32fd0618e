package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/rentflow-decision-ledger/internal/ingest"
	"github.com/rentflow-decision-ledger/internal/platform/messaging/producers"
)

// EventServiceImpl implements the EventService interface
type EventServiceImpl struct {
	producer producers.MessagePublisher
	logger   *slog.Logger
}

// NewEventService creates a new event service
func NewEventService(logger *slog.Logger, producer producers.MessagePublisher) EventService {
	return &EventServiceImpl{
		producer: producer,
		logger:   logger,
	}
}

// EnqueueDecisionEvent publishes a decision event to the decision topic for
// the ingest consumer to record. A missing event id is assigned here so the
// caller gets back the handle redeliveries will collapse onto.
func (s *EventServiceImpl) EnqueueDecisionEvent(ctx context.Context, event *ingest.DecisionEvent) (string, error) {
	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}

	if err := event.Validate(); err != nil {
		return "", err
	}

	if err := s.producer.Publish(ctx, event.EventID, event); err != nil {
		s.logger.Error("Failed to publish decision event",
			"event_id", event.EventID,
			"kind", string(event.Kind),
			"error", err,
		)
		return "", err
	}

	s.logger.Info("Decision event enqueued",
		"event_id", event.EventID,
		"kind", string(event.Kind),
	)

	return event.EventID, nil
}
