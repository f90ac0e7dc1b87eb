package broadcaster

import (
	"context"
	"time"

	"fenrir/infra/metrics"
	"fenrir/infra/outbox"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Broadcaster drains the settlement outbox into Kafka. Delivery is
// at-least-once: an entry stays pending until the broker acks it, so a
// crash between send and ack produces a duplicate, never a gap.
type Broadcaster struct {
	outbox   *outbox.Outbox
	producer sarama.SyncProducer
	topic    string
	log      *logrus.Logger
	metrics  *metrics.Metrics
	interval time.Duration
}

// ------------------------------------------------
// CONSTRUCTOR
// ------------------------------------------------

func New(
	ob *outbox.Outbox,
	brokers []string,
	topic string,
	log *logrus.Logger,
	m *metrics.Metrics,
) (*Broadcaster, error) {

	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}

	return &Broadcaster{
		outbox:   ob,
		producer: producer,
		topic:    topic,
		log:      log,
		metrics:  m,
		interval: 250 * time.Millisecond,
	}, nil
}

// ------------------------------------------------
// START LOOP
// ------------------------------------------------

func (b *Broadcaster) Start(ctx context.Context) {
	b.log.Info("broadcaster started")

	go func() {
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return

			case <-ticker.C:
				b.drainOnce()
			}
		}
	}()
}

// ------------------------------------------------
// DRAIN LOGIC
// ------------------------------------------------

func (b *Broadcaster) drainOnce() {
	var pending int

	_ = b.outbox.ScanPending(func(e *outbox.Entry) error {
		pending++

		// SENT before publish: a crash here means redelivery, not loss.
		if err := b.outbox.MarkSent(e.Seq); err != nil {
			return err
		}

		msg := &sarama.ProducerMessage{
			Topic: b.topic,
			Key:   sarama.StringEncoder(uuid.NewString()),
			Value: sarama.ByteEncoder(e.Payload),
		}

		if _, _, err := b.producer.SendMessage(msg); err != nil {
			b.log.WithError(err).WithField("seq", e.Seq).
				Warn("settlement publish failed, will retry")
			b.metrics.RecordPublish(false)
			_ = b.outbox.MarkFailed(e.Seq)
			return nil // keep draining the rest
		}

		b.metrics.RecordPublish(true)
		pending--
		return b.outbox.MarkAcked(e.Seq)
	})

	b.metrics.OutboxPending.Set(float64(pending))
}

// ------------------------------------------------
// SHUTDOWN
// ------------------------------------------------

func (b *Broadcaster) Close() error {
	return b.producer.Close()
}
