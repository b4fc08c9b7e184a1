// Package kafka consumes session lifecycle events from a topic and feeds them
// through the same processing path as the HTTP endpoint. Delivery is
// at-least-once; the lifecycle service's duplicate detection makes redelivery
// safe to ack.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"

	"jitbridge/internal/jit/models"
	"jitbridge/internal/jit/service"
	"jitbridge/internal/platform/config"
	dErrors "jitbridge/pkg/domain-errors"
	"jitbridge/pkg/requestcontext"
)

// Processor is the event processing entry point shared with the HTTP handler.
type Processor interface {
	Process(ctx context.Context, event models.Event) (*service.Outcome, error)
}

// Consumer reads event envelopes from the configured topic as part of a
// consumer group.
type Consumer struct {
	client    *kgo.Client
	processor Processor
	logger    *slog.Logger
}

// NewConsumer connects a consumer group client for the configured topic.
func NewConsumer(cfg config.KafkaConfig, processor Processor, logger *slog.Logger) (*Consumer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.ConsumerGroup(cfg.Group),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Consumer{
		client:    client,
		processor: processor,
		logger:    logger,
	}, nil
}

// Run polls until the context is cancelled or the client is closed.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.ErrorContext(ctx, "kafka fetch error",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})
		fetches.EachRecord(func(record *kgo.Record) {
			c.handle(ctx, record)
		})
	}
}

// Close shuts the client down, committing pending offsets.
func (c *Consumer) Close() {
	c.client.Close()
}

// handle processes one record. Every outcome acks the record: rejected and
// duplicate events are logged and skipped because redelivering them can never
// succeed, and transient processing failures surface through metrics and the
// error log rather than a retry storm.
func (c *Consumer) handle(ctx context.Context, record *kgo.Record) {
	ctx = requestcontext.WithRequestID(ctx, uuid.NewString())

	var event models.Event
	if err := json.Unmarshal(record.Value, &event); err != nil {
		c.logger.ErrorContext(ctx, "skipping undecodable record",
			"topic", record.Topic,
			"partition", record.Partition,
			"offset", record.Offset,
			"error", err,
		)
		return
	}

	outcome, err := c.processor.Process(ctx, event)
	if err != nil {
		switch dErrors.GetCode(err) {
		case dErrors.CodeConflict:
			c.logger.InfoContext(ctx, "skipping duplicate event",
				"event_name", event.EventName,
				"event_id", event.EventID,
			)
		case dErrors.CodeBadRequest, dErrors.CodeNotFound:
			c.logger.WarnContext(ctx, "skipping unprocessable event",
				"event_name", event.EventName,
				"event_id", event.EventID,
				"error", err,
			)
		default:
			c.logger.ErrorContext(ctx, "event processing failed",
				"event_name", event.EventName,
				"event_id", event.EventID,
				"offset", record.Offset,
				"error", err,
			)
		}
		return
	}

	c.logger.InfoContext(ctx, "event processed from topic",
		"event_name", event.EventName,
		"event_id", event.EventID,
		"incident_number", outcome.TicketNumber,
	)
}
