package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/rentflow-decision-ledger/internal/config"
	"github.com/segmentio/kafka-go"
)

type DecisionEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

// Creates a new decision event producer and ensures topic exists
func NewDecisionEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*DecisionEventProducer, error) {
	if cfg.DecisionTopic == "" {
		return nil, fmt.Errorf("kafka decision topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for decision event producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.DecisionTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure decision topic %s exists for decision event producer: %w", cfg.DecisionTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.DecisionTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        true, // Using async for high throughput
		WriteTimeout: cfg.MaxWait,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write messages asynchronously", "topic", cfg.DecisionTopic, "error", err, "count", len(messages))
			} else {
				logger.Debug("Successfully wrote messages asynchronously", "topic", cfg.DecisionTopic, "count", len(messages))
			}
		},
	}

	return &DecisionEventProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.DecisionTopic,
	}, nil
}

func (p *DecisionEventProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal message value for decision event producer: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish message via decision event producer",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish message to %s via decision event producer: %w", p.topic, err)
	}

	p.logger.Debug("Published message via decision event producer",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *DecisionEventProducer) Close() error {
	p.logger.Info("Closing decision event Kafka producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close decision event kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
