package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// channel is the part of *amqp.Channel the client uses.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type RabbitmqClient struct {
	// conn is nil when the client wraps an injected channel.
	conn *amqp.Connection
	chn  channel
}

func NewClient(url string) (*RabbitmqClient, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	chn, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	return &RabbitmqClient{conn: conn, chn: chn}, nil
}

func newClientWithChannel(chn channel) *RabbitmqClient {
	return &RabbitmqClient{chn: chn}
}

// Close cleans up
func (r *RabbitmqClient) Close() error {
	if err := r.chn.Close(); err != nil {
		return err
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

// DeclareQueue prepares a durable queue. Declaring an existing queue with the same
// arguments is a no-op.
func (r *RabbitmqClient) DeclareQueue(queueName string) error {
	_, err := r.chn.QueueDeclare(
		queueName, // name of queue
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", queueName, err)
	}
	return nil
}

// Publish sends a raw body to a queue through the default exchange.
func (r *RabbitmqClient) Publish(ctx context.Context, queueName string, body []byte) error {
	return r.chn.PublishWithContext(
		ctx,
		"",        // exchange
		queueName, // routing key (queue name)
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

// PublishJSON marshals v and publishes it as a persistent message.
func (r *RabbitmqClient) PublishJSON(ctx context.Context, queueName string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := r.Publish(ctx, queueName, body); err != nil {
		return fmt.Errorf("publish to %s: %w", queueName, err)
	}
	return nil
}
