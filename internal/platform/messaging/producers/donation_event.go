package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/config"
	"github.com/segmentio/kafka-go"
)

// DonationEventProducer publishes normalized payment events from the webhook
// gateway to the donation topic. Messages are keyed by payment session id so
// retried deliveries of the same session land on the same partition and stay
// ordered.
type DonationEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

// Creates a new webhook gateway producer and ensures topic exists
func NewDonationEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*DonationEventProducer, error) {
	if cfg.DonationTopic == "" {
		return nil, fmt.Errorf("kafka donation topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for donation event producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.DonationTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure donation topic %s exists for donation event producer: %w", cfg.DonationTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.DonationTopic,
		Balancer:     &kafka.Hash{}, // Keyed by session id, hash keeps per-session ordering
		RequiredAcks: kafka.RequireOne,
		Async:        true, // Webhook responses must not wait on broker round trips
		WriteTimeout: cfg.MaxWait,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write messages asynchronously", "topic", cfg.DonationTopic, "error", err, "count", len(messages))
			} else {
				logger.Debug("Successfully wrote messages asynchronously", "topic", cfg.DonationTopic, "count", len(messages))
			}
		},
	}

	return &DonationEventProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.DonationTopic,
	}, nil
}

func (p *DonationEventProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal message value for donation event producer: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish message via donation event producer",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish message to %s via donation event producer: %w", p.topic, err)
	}

	p.logger.Debug("Published message via donation event producer",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *DonationEventProducer) Close() error {
	p.logger.Info("Closing donation event Kafka message producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close donation event kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
