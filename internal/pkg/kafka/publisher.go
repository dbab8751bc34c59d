package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ds124wfegd/vton/internal/entity"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

const writeTimeout = 10 * time.Second

// Publisher emits one event per completed try-on.
type Publisher interface {
	Publish(ctx context.Context, event entity.TryOnEvent) error
	Close() error
}

type kafkaPublisher struct {
	writer *kafka.Writer
}

// NewPublisher connects to the first reachable broker and makes sure the
// topic exists. With no brokers, or none reachable, events are only logged.
func NewPublisher(brokers []string, topic string) Publisher {
	if len(brokers) == 0 {
		logrus.Info("kafka brokers not configured, result events are logged only")
		return &mockPublisher{}
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		logrus.WithError(err).WithField("brokers", brokers).Warn("kafka connection failed, using mock publisher")
		return &mockPublisher{}
	}
	defer conn.Close()

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		logrus.WithError(err).WithField("topic", topic).Info("could not create topic (might already exist)")
	}

	logrus.WithFields(logrus.Fields{"brokers": brokers, "topic": topic}).Info("connected to kafka")

	return &kafkaPublisher{writer: newWriter(brokers, topic)}
}

// newWriter returns an async writer: WriteMessages only enqueues, so a
// broker lost after startup never holds up a response. Delivery failures
// are logged from Completion and flushed on Close.
func newWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		WriteTimeout: writeTimeout,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logrus.WithError(err).WithField("count", len(messages)).Warn("result events not delivered")
			}
		},
	}
}

func newMessage(event entity.TryOnEvent) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(event.RequestID),
		Value: value,
		Time:  event.CreatedAt,
	}, nil
}

func (p *kafkaPublisher) Publish(ctx context.Context, event entity.TryOnEvent) error {
	msg, err := newMessage(event)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return err
	}

	logrus.WithField("request_id", event.RequestID).Debug("result event queued")
	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}

// mockPublisher stands in when kafka is not available.
type mockPublisher struct{}

func (m *mockPublisher) Publish(_ context.Context, event entity.TryOnEvent) error {
	logrus.WithFields(logrus.Fields{
		"request_id": event.RequestID,
		"model":      event.Model,
		"success":    event.Success,
	}).Debug("MOCK: result event")
	return nil
}

func (m *mockPublisher) Close() error {
	return nil
}
