package kafka

import (
	"context"
	"time"

	skafka "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Reader is the subset of kafka.Reader the consumer loop needs.
type Reader interface {
	FetchMessage(ctx context.Context) (skafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...skafka.Message) error
	Close() error
}

// Handler processes one message. A non-nil error leaves the offset uncommitted so the
// message is delivered again.
type Handler func(ctx context.Context, key []byte, value []byte) error

// Consumer runs a fetch/handle/commit loop over one topic.
type Consumer struct {
	reader         Reader
	log            *zap.Logger
	handlerTimeout time.Duration
	retryBackoff   time.Duration
}

// NewConsumer joins groupID on topic. Copies of the process sharing a group id split the
// partitions between them.
func NewConsumer(brokers []string, topic, groupID string, log *zap.Logger) *Consumer {
	r := skafka.NewReader(skafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return NewConsumerWithReader(r, log.With(zap.String("topic", topic), zap.String("group", groupID)))
}

// NewConsumerWithReader allows injecting a test reader.
func NewConsumerWithReader(r Reader, log *zap.Logger) *Consumer {
	return &Consumer{
		reader:         r,
		log:            log.Named("kafka.consumer"),
		handlerTimeout: 10 * time.Second,
		retryBackoff:   time.Second,
	}
}

// Start blocks until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context, handler Handler) {
	c.log.Info("consumer started")
	for {
		if ctx.Err() != nil {
			return
		}

		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Warn("fetch failed", zap.Error(err))
			c.sleep(ctx)
			continue
		}

		processCtx, cancel := context.WithTimeout(ctx, c.handlerTimeout)
		err = handler(processCtx, m.Key, m.Value)
		cancel()
		if err != nil {
			// Not committing means the group redelivers this offset after a rebalance or restart.
			c.log.Error("handler failed", zap.Int64("offset", m.Offset), zap.Int("partition", m.Partition), zap.Error(err))
			c.sleep(ctx)
			continue
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			c.log.Error("commit failed", zap.Int64("offset", m.Offset), zap.Error(err))
		}
	}
}

func (c *Consumer) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(c.retryBackoff):
	}
}

// Close disconnects from the brokers.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
