package producers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/event-driven-wallet/internal/config"
)

// OutboxRelayProducer publishes stored outbox payloads. The writer is not
// bound to a topic: each outbox row names the topic it belongs to.
type OutboxRelayProducer struct {
	logger *slog.Logger
	writer KafkaWriter
}

// NewOutboxRelayProducer creates the relay producer and ensures the given
// topics exist before any message is written to them.
func NewOutboxRelayProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig, topics []string) (*OutboxRelayProducer, error) {
	if len(topics) == 0 {
		return nil, fmt.Errorf("no topics configured for outbox relay producer")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for outbox relay producer: %w", err)
	}
	defer conn.Close()

	for _, topic := range topics {
		err = createKafkaTopicIfNotExists(conn, topic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to ensure topic %s exists for outbox relay producer: %w", topic, err)
		}
	}

	writer := newKeyedWriter(cfg)

	return &OutboxRelayProducer{
		logger: logger,
		writer: writer,
	}, nil
}

func (p *OutboxRelayProducer) PublishTo(ctx context.Context, topic string, key string, payload []byte) error {
	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to relay outbox message",
			"topic", topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to relay outbox message to %s: %w", topic, err)
	}

	p.logger.Debug("Relayed outbox message",
		"topic", topic,
		"key", key,
	)
	return nil
}

func (p *OutboxRelayProducer) Close() error {
	p.logger.Info("Closing outbox relay Kafka producer")
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close outbox relay kafka writer: %w", err)
	}
	return nil
}
