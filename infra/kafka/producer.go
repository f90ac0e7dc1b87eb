package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/segmentio/kafka-go"
)

// Producer publishes order status updates. Delivery here is best-effort:
// the durable settlement stream goes through the outbox, this feed only
// keeps downstream watchers roughly current.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireOne,
			Async:        true,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// StatusUpdate is the wire shape for order status change events.
type StatusUpdate struct {
	OrderHash    string `json:"order_hash"`
	Status       string `json:"status"`
	FilledAmount string `json:"filled_amount"`
	UpdatedAt    int64  `json:"updated_at"`
}

func (p *Producer) SendStatus(
	ctx context.Context,
	orderHash common.Hash,
	update StatusUpdate,
) error {
	value, err := json.Marshal(update)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   orderHash.Bytes(),
		Value: value,
	})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
