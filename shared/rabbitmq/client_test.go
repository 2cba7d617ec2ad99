package rabbitmq

import (
	"context"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	declared  []string
	published []amqp.Publishing
	keys      []string
	pubErr    error
	closed    bool
}

func (f *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	if !durable {
		return amqp.Queue{}, errors.New("expected durable queue")
	}
	f.declared = append(f.declared, name)
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if f.pubErr != nil {
		return f.pubErr
	}
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestPublishJSON(t *testing.T) {
	ch := &fakeChannel{}
	c := newClientWithChannel(ch)

	require.NoError(t, c.DeclareQueue("invoice_reminders"))
	require.NoError(t, c.PublishJSON(context.Background(), "invoice_reminders", map[string]int{"reminder_number": 2}))

	assert.Equal(t, []string{"invoice_reminders"}, ch.declared)
	require.Len(t, ch.published, 1)
	assert.Equal(t, "invoice_reminders", ch.keys[0])
	assert.Equal(t, amqp.Persistent, ch.published[0].DeliveryMode)
	assert.Equal(t, "application/json", ch.published[0].ContentType)
	assert.JSONEq(t, `{"reminder_number":2}`, string(ch.published[0].Body))

	require.NoError(t, c.Close())
	assert.True(t, ch.closed)
}

func TestPublishJSON_Error(t *testing.T) {
	ch := &fakeChannel{pubErr: errors.New("channel closed")}
	c := newClientWithChannel(ch)

	err := c.PublishJSON(context.Background(), "q", struct{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel closed")
}
