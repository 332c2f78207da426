// Package messaging consumes queued marketplace notifications from Kafka.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	appintegration "github.com/erp/ordersync/internal/application/integration"
	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/infrastructure/config"
	"github.com/erp/ordersync/internal/infrastructure/logger"
	"github.com/erp/ordersync/internal/infrastructure/telemetry"
)

// ErrInvalidEnvelope marks a message that can never be dispatched
var ErrInvalidEnvelope = errors.New("messaging: invalid notification envelope")

// ErrDispatchAbandoned is returned by Run when the retry policy gave up on a
// message. The message stays uncommitted.
var ErrDispatchAbandoned = errors.New("messaging: notification dispatch abandoned")

// MessageReader is the part of *kafka.Reader the consumer needs
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// PayloadDecoder turns a raw notification body into a Payload
type PayloadDecoder interface {
	Decode(data []byte) (integration.Payload, error)
}

// Envelope is the queued form of a pushed notification
type Envelope struct {
	ChannelID  uuid.UUID       `json:"channel_id"`
	EventName  string          `json:"event_name"`
	DeliveryID string          `json:"delivery_id,omitempty"`
	ReceivedAt time.Time       `json:"received_at"`
	Payload    json.RawMessage `json:"payload"`
}

// NewKafkaReader builds a consumer-group reader from cfg
func NewKafkaReader(cfg config.KafkaConfig) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: cfg.MinBytes,
		MaxBytes: cfg.MaxBytes,
		MaxWait:  cfg.MaxWait,
	})
}

// ConsumerOption configures a NotificationConsumer
type ConsumerOption func(*NotificationConsumer)

// WithBackOff replaces the retry policy used when dispatch fails
func WithBackOff(newBackOff func() backoff.BackOff) ConsumerOption {
	return func(c *NotificationConsumer) {
		c.newBackOff = newBackOff
	}
}

// NotificationConsumer reads envelopes and dispatches them. An offset is
// committed only after its notification was applied or found undecodable.
type NotificationConsumer struct {
	reader     MessageReader
	dispatcher appintegration.Dispatcher
	decoder    PayloadDecoder
	logger     *zap.Logger
	newBackOff func() backoff.BackOff
}

// NewNotificationConsumer creates a consumer over reader
func NewNotificationConsumer(
	reader MessageReader,
	dispatcher appintegration.Dispatcher,
	decoder PayloadDecoder,
	log *zap.Logger,
	opts ...ConsumerOption,
) *NotificationConsumer {
	c := &NotificationConsumer{
		reader:     reader,
		dispatcher: dispatcher,
		decoder:    decoder,
		logger:     log.Named("kafka_consumer"),
		newBackOff: defaultBackOff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// Run consumes until ctx is cancelled. It returns nil on cancellation,
// ErrDispatchAbandoned when retries for a message run out, and the reader's
// error otherwise.
func (c *NotificationConsumer) Run(ctx context.Context) error {
	c.logger.Info("Notification consumer started")
	defer c.logger.Info("Notification consumer stopped")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to fetch message: %w", err)
		}

		if err := c.process(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			// A later commit on this partition would cover the failed offset,
			// so stop here and let the group redeliver it.
			c.logger.Error("Giving up on notification",
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
			return fmt.Errorf("%w: offset %d: %w", ErrDispatchAbandoned, msg.Offset, err)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to commit offset %d: %w", msg.Offset, err)
		}
	}
}

// Close closes the underlying reader
func (c *NotificationConsumer) Close() error {
	return c.reader.Close()
}

// process returns nil for messages that should be committed
func (c *NotificationConsumer) process(ctx context.Context, msg kafka.Message) error {
	n, err := c.decode(msg)
	if err != nil {
		c.logger.Error("Skipping undecodable notification",
			zap.String("topic", msg.Topic),
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.Error(err),
		)
		return nil
	}

	ctx, log := logger.WithChannelID(ctx, c.logger, n.ChannelID.String())
	ctx, span := telemetry.StartConsumerSpan(ctx, "marketplace.notification",
		attribute.String("marketplace.event_name", n.EventName),
		attribute.String("marketplace.delivery_id", n.DeliveryID),
		attribute.String("messaging.kafka.topic", msg.Topic),
		attribute.Int64("messaging.kafka.offset", msg.Offset),
	)

	attempt := 0
	err = backoff.RetryNotify(
		func() error {
			attempt++
			return c.dispatcher.Dispatch(ctx, n)
		},
		backoff.WithContext(c.newBackOff(), ctx),
		func(err error, wait time.Duration) {
			log.Warn("Retrying notification dispatch",
				zap.String("event_name", n.EventName),
				zap.String("delivery_id", n.DeliveryID),
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.Error(err),
			)
		},
	)
	telemetry.EndSpan(span, err)
	return err
}

func (c *NotificationConsumer) decode(msg kafka.Message) (*appintegration.Notification, error) {
	var env Envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if env.ChannelID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing channel_id", ErrInvalidEnvelope)
	}
	if len(env.Payload) == 0 {
		return nil, fmt.Errorf("%w: missing payload", ErrInvalidEnvelope)
	}
	payload, err := c.decoder.Decode(env.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}

	eventName := env.EventName
	if eventName == "" {
		eventName = payload.String("NotificationEventName")
	}
	receivedAt := env.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = msg.Time
	}
	return &appintegration.Notification{
		ChannelID:  env.ChannelID,
		EventName:  eventName,
		DeliveryID: env.DeliveryID,
		ReceivedAt: receivedAt,
		Payload:    payload,
	}, nil
}
