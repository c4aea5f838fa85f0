package sink

import (
	"context"

	"github.com/relabs-tech/motion_collector/internal/imu"
)

// KeyLayout formats the per-message key: the wall-clock time the sample was produced.
const KeyLayout = "Mon Jan 02 2006 15:04:05 GMT-0700 (MST)"

// Producer publishes one keyed message to a topic without waiting for an
// acknowledgment. Failures that surface later are only logged.
type Producer interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
	Close() error
}

// LogSink sends each sample as one CSV message to an event-log topic.
type LogSink struct {
	producer Producer
	topic    string
}

func NewLogSink(p Producer, topic string) *LogSink {
	return &LogSink{producer: p, topic: topic}
}

func (l *LogSink) Write(ctx context.Context, s imu.CombinedSample) error {
	return l.producer.Publish(ctx, l.topic, s.ProducedAt.Format(KeyLayout), []byte(s.CSV()))
}

func (l *LogSink) Close() error {
	return l.producer.Close()
}
