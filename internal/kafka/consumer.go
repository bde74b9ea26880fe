package kafka

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// SeatEventHandler processes one decoded seat event.
type SeatEventHandler func(ctx context.Context, event SeatEvent) error

// Consumer reads seat events from a topic and hands the decoded payload
// to a handler. Decoding happens here so callers never see raw messages.
type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(brokers []string, groupID, topic string) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           brokers,
			GroupID:           groupID,
			Topic:             topic,
			MaxWait:           time.Second,
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

// Consume blocks reading seat events until ctx is canceled or the
// handler fails. A payload that does not decode as a SeatEvent is
// logged and skipped so one bad message cannot wedge the group.
func (c *Consumer) Consume(ctx context.Context, handler SeatEventHandler) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			return err
		}

		if err := dispatchSeatEvent(ctx, msg, handler); err != nil {
			return err
		}
	}
}

func dispatchSeatEvent(ctx context.Context, msg kafka.Message, handler SeatEventHandler) error {
	var event SeatEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		log.Printf("skip malformed seat event at %s/%d offset %d: %v", msg.Topic, msg.Partition, msg.Offset, err)
		return nil
	}
	return handler(ctx, event)
}
