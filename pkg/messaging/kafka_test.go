package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaProducer_PublishUsesDefaultTopic(t *testing.T) {
	producer := NewKafkaProducer([]string{"localhost:9092"}, "storefront-events")
	writer := &fakeWriter{}
	producer.writers["storefront-events"] = writer

	err := producer.Publish(context.Background(), "co-1", map[string]string{"type": "checkout.completed"})
	require.NoError(t, err)

	require.Len(t, writer.messages, 1)
	assert.Equal(t, "co-1", string(writer.messages[0].Key))

	var body map[string]string
	require.NoError(t, json.Unmarshal(writer.messages[0].Value, &body))
	assert.Equal(t, "checkout.completed", body["type"])
}

func TestKafkaProducer_WriterErrorsSurface(t *testing.T) {
	producer := NewKafkaProducer(nil, "events")
	producer.writers["events"] = &fakeWriter{err: errors.New("broker down")}

	assert.EqualError(t, producer.Publish(context.Background(), "k", "v"), "broker down")
}

func TestKafkaProducer_Writers(t *testing.T) {
	producer := NewKafkaProducer([]string{"localhost:9092"}, "events")

	first := producer.GetWriter("other")
	assert.Same(t, first, producer.GetWriter("other"))
	assert.IsType(t, &kafka.Writer{}, first)

	fake := &fakeWriter{}
	producer.writers["events"] = fake
	producer.Close()
	assert.True(t, fake.closed)
}

func TestKafkaProducer_UnencodableEvent(t *testing.T) {
	producer := NewKafkaProducer(nil, "events")
	writer := &fakeWriter{}
	producer.writers["events"] = writer

	assert.Error(t, producer.Publish(context.Background(), "k", make(chan int)))
	assert.Empty(t, writer.messages)
}
