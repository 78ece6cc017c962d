package messaging

import (
	"context"
	"encoding/json"
	"sync"

	"golang-storefront-backend/pkg/logging"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// messageWriter is the part of *kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaProducer struct {
	mu      sync.Mutex
	brokers []string
	topic   string
	writers map[string]messageWriter
}

func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	return &KafkaProducer{
		brokers: brokers,
		topic:   topic,
		writers: make(map[string]messageWriter),
	}
}

func (kp *KafkaProducer) GetWriter(topic string) messageWriter {
	kp.mu.Lock()
	defer kp.mu.Unlock()

	if writer, exists := kp.writers[topic]; exists {
		return writer
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(kp.brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	kp.writers[topic] = writer
	return writer
}

func (kp *KafkaProducer) SendMessage(ctx context.Context, topic, key string, value interface{}) error {
	writer := kp.GetWriter(topic)

	jsonData, err := json.Marshal(value)
	if err != nil {
		return err
	}

	message := kafka.Message{
		Key:   []byte(key),
		Value: jsonData,
	}

	return writer.WriteMessages(ctx, message)
}

// Publish sends event to the producer's default topic. Messages with the same
// key land on the same partition.
func (kp *KafkaProducer) Publish(ctx context.Context, key string, event interface{}) error {
	return kp.SendMessage(ctx, kp.topic, key, event)
}

func (kp *KafkaProducer) Close() {
	kp.mu.Lock()
	defer kp.mu.Unlock()
	for _, writer := range kp.writers {
		writer.Close()
	}
}

// LogPublisher writes events to the log. Used when no brokers are configured.
type LogPublisher struct {
	log *logrus.Logger
}

func NewLogPublisher() *LogPublisher {
	return &LogPublisher{log: logging.Logger()}
}

func (p *LogPublisher) Publish(_ context.Context, key string, event interface{}) error {
	p.log.WithFields(logrus.Fields{"key": key, "event": event}).Info("event")
	return nil
}
