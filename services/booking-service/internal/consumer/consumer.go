// Package consumer applies inbound Kafka events. An event stays in the inbox only once its
// handler succeeded, and offsets are committed after processing.
package consumer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/salonbook/libs/kafkax"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Handler func(ctx context.Context, msg kafka.Message) error

// Inbox de-duplicates deliveries. Record reports false for an event seen before;
// Release undoes a Record whose handler failed.
type Inbox interface {
	Record(ctx context.Context, eventID string, eventType string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

// MessageReader is the subset of *kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const defaultMaxAttempts = 5

type Consumer struct {
	reader      MessageReader
	logger      *slog.Logger
	inbox       Inbox
	handler     Handler
	retryDelay  time.Duration
	maxAttempts int
}

type Config struct {
	Brokers string
	GroupID string
	Topic   string
}

func New(logger *slog.Logger, inbox Inbox, cfg Config, handler Handler) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  kafkax.SplitBrokers(cfg.Brokers),
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return NewWithReader(reader, logger, inbox, handler)
}

func NewWithReader(reader MessageReader, logger *slog.Logger, inbox Inbox, handler Handler) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		reader:      reader,
		logger:      logger,
		inbox:       inbox,
		handler:     handler,
		retryDelay:  time.Second,
		maxAttempts: defaultMaxAttempts,
	}
}

// Run reads until ctx is cancelled. A failing message is retried up to maxAttempts times,
// then logged and committed.
func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka read error", "err", err)
			if !c.wait(ctx) {
				return
			}
			continue
		}

		for attempt := 1; ; attempt++ {
			err = c.Process(ctx, msg)
			if err == nil {
				break
			}
			if attempt >= c.maxAttempts {
				c.logger.Error("giving up on event", "err", err, "offset", msg.Offset, "attempts", attempt)
				break
			}
			if !c.wait(ctx) {
				return
			}
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("kafka commit failed", "err", err, "offset", msg.Offset)
		}
	}
}

func (c *Consumer) wait(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(c.retryDelay):
		return true
	}
}

// Process handles one message. Duplicates are acknowledged without calling the handler.
func (c *Consumer) Process(ctx context.Context, msg kafka.Message) error {
	ctxMsg := kafkax.ExtractTraceContext(ctx, msg)
	ctxSpan, span := otel.Tracer("kafka").Start(ctxMsg, "kafka.consume",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
		),
	)
	defer span.End()

	meta := kafkax.ExtractEventMeta(msg)

	ok, err := c.inbox.Record(ctxSpan, meta.EventID, meta.EventType)
	if err != nil {
		c.logger.Error("inbox record failed", "err", err, "event_id", meta.EventID)
		span.RecordError(err)
		return err
	}
	if !ok {
		c.logger.Info("duplicate event ignored", "event_id", meta.EventID, "event_type", meta.EventType)
		return nil
	}

	if err := c.handler(ctxSpan, msg); err != nil {
		c.logger.Error("handler error", "err", err, "event_id", meta.EventID)
		span.RecordError(err)
		if rerr := c.inbox.Release(ctxSpan, meta.EventID); rerr != nil {
			c.logger.Error("inbox release failed", "err", rerr, "event_id", meta.EventID)
			return errors.Join(err, rerr)
		}
		return err
	}
	return nil
}
