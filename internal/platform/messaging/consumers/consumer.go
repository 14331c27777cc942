package consumers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/event-driven-wallet/internal/config"
	"github.com/event-driven-wallet/internal/platform/messaging/producers"
)

type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// Consumer defines the message queue consumer interface
type Consumer interface {
	Subscribe(ctx context.Context, handler MessageHandler) error
	Close() error
}

// KafkaConsumer implements Consumer using Kafka. Each message is handed to
// the handler up to maxRetries times with backoff; a message that still
// fails is routed to the DLQ and its offset committed so the partition
// keeps moving.
type KafkaConsumer struct {
	reader       *kafka.Reader
	logger       *slog.Logger
	dlq          producers.DeadLetterPublisher
	topic        string
	groupID      string
	maxRetries   int
	retryBackoff time.Duration
}

func NewKafkaConsumer(_ context.Context, logger *slog.Logger, cfg *config.KafkaConfig, topic string, dlq producers.DeadLetterPublisher) *KafkaConsumer {
	return &KafkaConsumer{
		logger:       logger,
		dlq:          dlq,
		topic:        topic,
		groupID:      cfg.ConsumerGroup,
		maxRetries:   cfg.MaxRetries,
		retryBackoff: cfg.RetryBackoff,
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     []string{cfg.Brokers},
			Topic:       topic,
			GroupID:     cfg.ConsumerGroup,
			MinBytes:    cfg.MinBytes,
			MaxBytes:    cfg.MaxBytes,
			MaxWait:     cfg.MaxWait,
			StartOffset: kafka.FirstOffset,
		}),
	}
}

// Subscribe starts consuming the configured topic and processes messages with the handler
func (c *KafkaConsumer) Subscribe(ctx context.Context, handler MessageHandler) error {
	c.logger.Info("Subscribed to Kafka topic",
		"topic", c.topic,
		"group_id", c.groupID,
	)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.logger.Info("Context canceled, stopping consumer",
					"topic", c.topic,
					"group_id", c.groupID,
				)
				return
			default:
				msg, err := c.reader.FetchMessage(ctx)
				if err != nil {
					c.logger.Error("Failed to fetch message from Kafka",
						"topic", c.topic,
						"group_id", c.groupID,
						"error", err,
					)
					// If the context was canceled, return
					if ctx.Err() != nil {
						return
					}
					// Otherwise, wait a bit and try again
					time.Sleep(time.Second)
					continue
				}

				c.logger.Debug("Received message from Kafka",
					"topic", msg.Topic,
					"partition", msg.Partition,
					"offset", msg.Offset,
					"key", string(msg.Key),
				)

				processingErr := c.handleWithRetry(ctx, handler, msg)
				if processingErr != nil {
					c.logger.Error("Exhausted retries and DLQ routing failed, will not commit offset",
						"topic", msg.Topic,
						"partition", msg.Partition,
						"offset", msg.Offset,
						"key", string(msg.Key),
						"error", processingErr,
					)
					// Uncommitted messages are redelivered after rebalance or restart
					continue
				}

				if err := c.reader.CommitMessages(ctx, msg); err != nil {
					c.logger.Error("Failed to commit message after successful processing",
						"topic", msg.Topic,
						"partition", msg.Partition,
						"offset", msg.Offset,
						"key", string(msg.Key),
						"error", err,
					)
				} else {
					c.logger.Debug("Message committed successfully",
						"topic", msg.Topic,
						"offset", msg.Offset,
						"key", string(msg.Key),
					)
				}
			}
		}
	}()

	return nil
}

// handleWithRetry runs the handler with bounded retries. Returns nil when the
// message was either processed or parked on the DLQ; either way the offset is
// safe to commit.
func (c *KafkaConsumer) handleWithRetry(ctx context.Context, handler MessageHandler, msg kafka.Message) error {
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		lastErr = handler(ctx, msg.Key, msg.Value)
		if lastErr == nil {
			return nil
		}

		c.logger.Warn("Failed to process message",
			"topic", msg.Topic,
			"offset", msg.Offset,
			"key", string(msg.Key),
			"attempt", attempt,
			"max_retries", c.maxRetries,
			"error", lastErr,
		)

		if attempt < c.maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryBackoff * time.Duration(attempt)):
			}
		}
	}

	if c.dlq == nil {
		return fmt.Errorf("handler failed after %d attempts and no DLQ configured: %w", c.maxRetries, lastErr)
	}

	reason := fmt.Sprintf("handler failed after %d attempts: %v", c.maxRetries, lastErr)
	if dlqErr := c.dlq.PublishToDLQ(ctx, string(msg.Key), msg.Value, reason); dlqErr != nil {
		return fmt.Errorf("failed to route message to DLQ: %w", dlqErr)
	}

	c.logger.Info("Routed message to DLQ",
		"topic", msg.Topic,
		"offset", msg.Offset,
		"key", string(msg.Key),
		"reason", reason,
	)
	return nil
}

func (c *KafkaConsumer) Close() error {
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}
