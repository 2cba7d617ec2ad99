package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	skafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWriter is a test writer that records messages written.
type fakeWriter struct {
	msgs []skafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...skafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

type namedPayload struct {
	Name string `json:"name"`
}

func (namedPayload) EventType() string { return "fleet_invoice.created" }

func TestPublish(t *testing.T) {
	fw := &fakeWriter{}
	p := NewKafkaProducerWithWriter(fw)

	require.NoError(t, p.Publish(context.Background(), "key1", map[string]string{"a": "b"}))
	require.Len(t, fw.msgs, 1)
	assert.Equal(t, "key1", string(fw.msgs[0].Key))
	assert.JSONEq(t, `{"a":"b"}`, string(fw.msgs[0].Value))
	assert.Empty(t, fw.msgs[0].Headers)
}

func TestPublish_StampsEventType(t *testing.T) {
	fw := &fakeWriter{}
	p := NewKafkaProducerWithWriter(fw)

	require.NoError(t, p.Publish(context.Background(), "inv-1", namedPayload{Name: "x"}))
	require.Len(t, fw.msgs, 1)
	require.Len(t, fw.msgs[0].Headers, 1)
	assert.Equal(t, eventTypeHeader, fw.msgs[0].Headers[0].Key)
	assert.Equal(t, "fleet_invoice.created", string(fw.msgs[0].Headers[0].Value))

	var decoded namedPayload
	require.NoError(t, json.Unmarshal(fw.msgs[0].Value, &decoded))
	assert.Equal(t, "x", decoded.Name)
}

func TestPublish_WriteError(t *testing.T) {
	fw := &fakeWriter{err: errors.New("broker down")}
	p := NewKafkaProducerWithWriter(fw)

	err := p.Publish(context.Background(), "k", map[string]int{"n": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestPublish_MarshalError(t *testing.T) {
	fw := &fakeWriter{}
	p := NewKafkaProducerWithWriter(fw)

	err := p.Publish(context.Background(), "k", make(chan int))
	require.Error(t, err)
	assert.Empty(t, fw.msgs)
}
