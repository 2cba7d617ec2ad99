package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	skafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeReader hands out queued messages and blocks once they run out.
type fakeReader struct {
	mu        sync.Mutex
	queue     []skafka.Message
	committed []int64
}

func (f *fakeReader) FetchMessage(ctx context.Context) (skafka.Message, error) {
	f.mu.Lock()
	if len(f.queue) > 0 {
		m := f.queue[0]
		f.queue = f.queue[1:]
		f.mu.Unlock()
		return m, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return skafka.Message{}, ctx.Err()
}

func (f *fakeReader) CommitMessages(ctx context.Context, msgs ...skafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeReader) Close() error { return nil }

func (f *fakeReader) commits() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.committed...)
}

func TestConsumer_CommitsOnlyHandledMessages(t *testing.T) {
	reader := &fakeReader{queue: []skafka.Message{
		{Offset: 1, Key: []byte("ok")},
		{Offset: 2, Key: []byte("fail")},
		{Offset: 3, Key: []byte("ok")},
	}}
	c := NewConsumerWithReader(reader, zap.NewNop())
	c.retryBackoff = time.Millisecond

	var (
		mu   sync.Mutex
		seen []string
	)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Start(ctx, func(ctx context.Context, key, value []byte) error {
			mu.Lock()
			seen = append(seen, string(key))
			mu.Unlock()
			if string(key) == "fail" {
				return errors.New("downstream unavailable")
			}
			return nil
		})
	}()

	require.Eventually(t, func() bool { return len(reader.commits()) == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, []int64{1, 3}, reader.commits())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"ok", "fail", "ok"}, seen)
}
