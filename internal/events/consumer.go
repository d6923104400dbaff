package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Handler consumes one decoded message-sent event.
type Handler interface {
	HandleMessageSent(ctx context.Context, ev MessageSent) error
}

type Consumer struct {
	reader  *kafka.Reader
	handler Handler
	log     *zap.Logger
}

func NewConsumer(brokers []string, topic, groupID string, handler Handler, log *zap.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{reader: r, handler: handler, log: log}
}

// Start blocks until ctx is cancelled. Decode and handler failures are
// logged and the offset moves on; the inbox is a convenience, not a ledger.
func (c *Consumer) Start(ctx context.Context) error {
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Warn("kafka read error", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		var ev MessageSent
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			c.log.Warn("dropping undecodable event", zap.Error(err))
			continue
		}
		if err := c.handler.HandleMessageSent(ctx, ev); err != nil {
			c.log.Warn("event handler failed", zap.String("room_id", ev.RoomID), zap.Error(err))
		}
	}
}

func (c *Consumer) Close() error { return c.reader.Close() }
