package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	appErr "github.com/yuanjian-org/app-sub000/internal/errors"
	"github.com/yuanjian-org/app-sub000/internal/model"
	"github.com/yuanjian-org/app-sub000/pkg/tracing"
)

// TriggerEvent is published by the web application when something happens
// that should eventually produce a digest notification.
type TriggerEvent struct {
	Type      string `json:"type"`
	SubjectID string `json:"subject_id"`
}

// Scheduler enqueues debounced notifications
type Scheduler interface {
	Schedule(ctx context.Context, t model.ScheduledType, subjectID string) error
}

// Consumer reads trigger events from a topic using a consumer group and
// schedules a notification for each.
type Consumer struct {
	topic         string
	scheduler     Scheduler
	consumerGroup sarama.ConsumerGroup
	tracer        *tracing.Tracer
	log           *slog.Logger
}

// NewKafkaConsumer constructs a new Kafka Consumer.
func NewKafkaConsumer(
	topic string,
	consumerGroup sarama.ConsumerGroup,
	scheduler Scheduler,
	tracer *tracing.Tracer,
	log *slog.Logger,
) *Consumer {
	return &Consumer{
		topic:         topic,
		consumerGroup: consumerGroup,
		scheduler:     scheduler,
		tracer:        tracer,
		log:           log.With("layer", "kafka", "component", "consumer"),
	}
}

// NewConsumerGroup creates a sarama consumer group for the trigger topic.
func NewConsumerGroup(brokers []string, group string) (sarama.ConsumerGroup, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Version = sarama.V2_1_0_0
	saramaCfg.Consumer.Return.Errors = true
	saramaCfg.Consumer.Offsets.Initial = sarama.OffsetOldest

	cg, err := sarama.NewConsumerGroup(brokers, group, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}
	return cg, nil
}

// Start runs the consumer loop until ctx is cancelled or the group is closed.
func (c *Consumer) Start(ctx context.Context) error {
	defer func() {
		if err := c.consumerGroup.Close(); err != nil {
			c.log.Warn("Failed to close consumer group", slog.Any("error", err))
		}
	}()

	go func() {
		for err := range c.consumerGroup.Errors() {
			c.log.Error("Consumer group error", slog.Any("error", err))
		}
	}()

	c.log.Info("Kafka consumer started", slog.String("topic", c.topic))

	backoff := 1 * time.Second
	for {
		err := c.consumerGroup.Consume(ctx, []string{c.topic}, c)
		if err != nil {
			c.log.Error("Error consuming messages", slog.Any("error", err))

			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return err
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = 1 * time.Second

		if ctx.Err() != nil {
			c.log.Info("Context cancelled, stopping consumer")
			return ctx.Err()
		}
	}
}

// Setup is called once when a new consumer session starts.
func (c *Consumer) Setup(session sarama.ConsumerGroupSession) error {
	for topic, partitions := range session.Claims() {
		c.log.Info("Partition assignment",
			slog.String("topic", topic),
			slog.Any("partitions", partitions),
		)
	}
	return nil
}

// Cleanup is called once when the consumer session ends.
func (c *Consumer) Cleanup(_ sarama.ConsumerGroupSession) error {
	c.log.Info("Kafka session cleanup complete")
	return nil
}

// ConsumeClaim schedules a notification per message. Malformed messages are
// committed and skipped. A scheduling failure ends the session without
// committing, so the message is delivered again.
func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case <-session.Context().Done():
			return nil
		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := c.handle(session, message); err != nil {
				return err
			}
		}
	}
}

func (c *Consumer) handle(session sarama.ConsumerGroupSession, message *sarama.ConsumerMessage) error {
	ctx := tracing.ExtractTraceContext(session.Context(), message.Headers)
	ctx, span := c.tracer.StartConsumerSpan(ctx, "kafka.consume.trigger")
	defer span.End()
	c.tracer.AddKafkaAttributes(span, message.Topic, "process", message.Partition, message.Offset)

	c.log.DebugContext(ctx, "Message received",
		slog.String("topic", message.Topic),
		slog.Int("partition", int(message.Partition)),
		slog.Int64("offset", message.Offset),
	)

	event, t, err := decodeTrigger(message.Value)
	if err != nil {
		c.log.ErrorContext(ctx, "Failed to decode trigger event, skipping", slog.Int64("offset", message.Offset), slog.Any("error", err))
		session.MarkMessage(message, "")
		return nil
	}

	if err := c.scheduler.Schedule(ctx, t, event.SubjectID); err != nil {
		if appErr.IsInvalidInput(err) {
			c.log.ErrorContext(ctx, "Rejected trigger event, skipping", slog.Any("error", err))
			session.MarkMessage(message, "")
			return nil
		}
		c.tracer.RecordError(span, err)
		c.log.ErrorContext(ctx, "Failed to schedule notification",
			slog.String("type", event.Type),
			slog.String("subject_id", event.SubjectID),
			slog.Any("error", err),
		)
		return err
	}

	session.MarkMessage(message, "")
	return nil
}

func decodeTrigger(value []byte) (TriggerEvent, model.ScheduledType, error) {
	var event TriggerEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return event, "", err
	}
	t, err := model.ParseScheduledType(event.Type)
	if err != nil {
		return event, "", err
	}
	if event.SubjectID == "" {
		return event, "", errors.New("missing subject_id")
	}
	return event, t, nil
}
