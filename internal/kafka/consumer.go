package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventHandler receives one decoded booking event. Returning an error stops
// the consumer without committing the message.
type EventHandler func(ctx context.Context, event BookingEvent) error

type Consumer struct {
	reader *kafka.Reader
	logger *zap.Logger
}

func NewConsumer(brokers []string, groupID, topic string, logger *zap.Logger) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           brokers,
			GroupID:           groupID,
			Topic:             topic,
			MinBytes:          1,
			MaxBytes:          1 << 20,
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
		}),
		logger: logger,
	}
}

func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// ConsumeEvents reads booking events until ctx is done or handler fails.
// Messages that do not decode are logged and committed so one bad record
// cannot wedge the group.
func (c *Consumer) ConsumeEvents(ctx context.Context, handler EventHandler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return err
		}

		event, err := DecodeEvent(msg)
		if err != nil {
			c.logger.Warn("skipping malformed booking event",
				zap.String("topic", msg.Topic),
				zap.Int("partition", msg.Partition),
				zap.Error(err),
			)
		} else if err := handler(ctx, event); err != nil {
			return fmt.Errorf("handle %s event for session %s: %w", event.Type, event.SessionID, err)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return fmt.Errorf("commit offset %d: %w", msg.Offset, err)
		}
	}
}

func DecodeEvent(msg kafka.Message) (BookingEvent, error) {
	var event BookingEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return BookingEvent{}, fmt.Errorf("decode booking event at offset %d: %w", msg.Offset, err)
	}
	if event.Type == "" {
		return BookingEvent{}, fmt.Errorf("booking event at offset %d has no type", msg.Offset)
	}
	return event, nil
}
