package kafka

import (
	"context"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(brokers []string, groupID, topic string) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           brokers,
			GroupID:           groupID,
			Topic:             topic,
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
		}),
	}
}

func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

func (c *Consumer) Consume(ctx context.Context, handler func(context.Context, kafka.Message) error) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			return err
		}

		if err := handler(ctx, msg); err != nil {
			return err
		}
	}
}

// ConsumeBookingEvents decodes each message and hands it to handle.
// Malformed messages are logged and skipped.
func (c *Consumer) ConsumeBookingEvents(ctx context.Context, handle func(context.Context, BookingEvent) error) error {
	return c.Consume(ctx, func(ctx context.Context, msg kafka.Message) error {
		event, err := DecodeBookingEvent(msg.Value)
		if err != nil {
			log.Printf("kafka: skip message offset=%d: %v", msg.Offset, err)
			return nil
		}
		return handle(ctx, event)
	})
}
