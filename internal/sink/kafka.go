package sink

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaProducer publishes fire-and-forget: the writer is asynchronous and
// requires no acknowledgment from the brokers.
type KafkaProducer struct {
	writer *kafka.Writer
}

// NewKafkaProducer builds the writer for the given bootstrap brokers and
// checks once that the first broker is reachable.
func NewKafkaProducer(ctx context.Context, brokers []string, clientID string) (*KafkaProducer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka: no bootstrap brokers")
	}

	dialer := &kafka.Dialer{ClientID: clientID, Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return nil, fmt.Errorf("kafka: connect %s: %w", brokers[0], err)
	}
	conn.Close()

	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		RequiredAcks: kafka.RequireNone,
		Async:        true,
		BatchTimeout: 10 * time.Millisecond,
		Transport:    &kafka.Transport{ClientID: clientID},
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Printf("kafka: publish of %d message(s) failed: %v", len(messages), err)
			}
		},
	}
	return &KafkaProducer{writer: w}, nil
}

func (k *KafkaProducer) Publish(ctx context.Context, topic, key string, value []byte) error {
	return k.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	})
}

// Close flushes pending batches.
func (k *KafkaProducer) Close() error {
	return k.writer.Close()
}
