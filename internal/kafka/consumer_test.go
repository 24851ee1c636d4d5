package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func testConsumer(t *testing.T, workers int) *Consumer {
	return &Consumer{
		workers:    workers,
		log:        zaptest.NewLogger(t),
		minBackoff: time.Millisecond,
		maxBackoff: 4 * time.Millisecond,
	}
}

func TestProcessRetriesUntilHandlerSucceeds(t *testing.T) {
	c := testConsumer(t, 1)
	calls := 0
	h := func(ctx context.Context, m kafka.Message) error {
		calls++
		if calls < 4 {
			return errors.New("db down")
		}
		return nil
	}

	ok := c.process(context.Background(), 0, h, kafka.Message{Partition: 0, Offset: 7})
	assert.True(t, ok)
	assert.Equal(t, 4, calls)
}

func TestProcessStopsWithoutCommitOnShutdown(t *testing.T) {
	c := testConsumer(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	h := func(ctx context.Context, m kafka.Message) error {
		calls++
		if calls == 3 {
			cancel()
		}
		return errors.New("db down")
	}

	done := make(chan bool, 1)
	go func() { done <- c.process(ctx, 0, h, kafka.Message{Offset: 1}) }()

	select {
	case ok := <-done:
		assert.False(t, ok)
		assert.Equal(t, 3, calls)
	case <-time.After(2 * time.Second):
		t.Fatal("process kept retrying after ctx was cancelled")
	}
}

func TestWorkerForKeepsPartitionOnOneWorker(t *testing.T) {
	c := testConsumer(t, 3)
	assert.Equal(t, 0, c.workerFor(0))
	assert.Equal(t, 1, c.workerFor(4))
	assert.Equal(t, c.workerFor(5), c.workerFor(5))

	single := testConsumer(t, 1)
	for p := 0; p < 10; p++ {
		assert.Equal(t, 0, single.workerFor(p))
	}
}
