package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rentflow-decision-ledger/internal/domain/decision"
	"github.com/rentflow-decision-ledger/internal/ledger/codec"
	"github.com/rentflow-decision-ledger/internal/ledger/transport"
	"github.com/rentflow-decision-ledger/internal/platform/messaging/producers"
)

// DecisionEventHandler handles incoming decision event messages from Kafka
type DecisionEventHandler struct {
	recordingService RecordingService
	producer         producers.DeadLetterPublisher
	logger           *slog.Logger
}

// NewDecisionEventHandler creates a new handler
func NewDecisionEventHandler(
	logger *slog.Logger,
	recordingService RecordingService,
	producer producers.DeadLetterPublisher,
) *DecisionEventHandler {
	return &DecisionEventHandler{
		recordingService: recordingService,
		producer:         producer,
		logger:           logger,
	}
}

// HandleMessage processes Kafka messages. Returning nil commits the offset;
// returning an error leaves it for redelivery. Events that can never record
// (malformed JSON, validation failures, permanent ledger rejections) go to
// the DLQ and commit, so one poison message cannot stall the partition.
func (h *DecisionEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var event DecisionEvent
	if err := json.Unmarshal(value, &event); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal decision event from Kafka message"
		h.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(key),
		)
		if dlqErr := h.sendToDLQ(ctx, key, value, fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error())); dlqErr != nil {
			// Allow Kafka retries when the DLQ is unavailable too
			return fmt.Errorf("failed to unmarshal message value: %w", err)
		}
		return nil
	}

	logger := h.logger
	if event.CorrelationID != "" {
		logger = h.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Info("Received decision event for recording",
		"event_id", event.EventID,
		"kind", string(event.Kind),
	)

	if err := h.recordingService.RecordEvent(ctx, &event); err != nil {
		if isUnrecordable(err) {
			logger.Error("Decision event can never be recorded, sending to DLQ",
				"event_id", event.EventID,
				"error", err,
			)
			if dlqErr := h.sendToDLQ(ctx, key, value, err.Error()); dlqErr != nil {
				return fmt.Errorf("recording event %s failed permanently and DLQ publish failed: %w", event.EventID, err)
			}
			return nil
		}

		logger.Error("Failed to record decision event, leaving for redelivery",
			"event_id", event.EventID,
			"error", err,
		)
		return fmt.Errorf("recording event %s failed: %w", event.EventID, err)
	}

	logger.Info("Successfully recorded decision event", "event_id", event.EventID)
	return nil
}

func (h *DecisionEventHandler) sendToDLQ(ctx context.Context, key, value []byte, reason string) error {
	if h.producer == nil {
		return errors.New("DLQ producer not configured")
	}
	if err := h.producer.PublishToDLQ(ctx, string(key), value, reason); err != nil {
		h.logger.Error("Failed to publish message to DLQ",
			"dlq_error", err,
			"message_key", string(key),
		)
		return err
	}
	h.logger.Info("Published unrecordable message to DLQ", "message_key", string(key), "reason", reason)
	return nil
}

// isUnrecordable reports whether retrying the event can never succeed
func isUnrecordable(err error) bool {
	if errors.Is(err, decision.ErrValidation{}) || errors.Is(err, codec.EncodingError{}) {
		return true
	}
	return errors.Is(err, transport.PermanentError{})
}
