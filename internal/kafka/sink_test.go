package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ariefcatur/midtrans-ledger/internal/settlement"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	topic   string
	key     []byte
	value   []byte
	headers []kafka.Header
}

type fakePublisher struct{ msgs []published }

func (f *fakePublisher) Publish(_ context.Context, topic string, key, value []byte, headers ...kafka.Header) error {
	f.msgs = append(f.msgs, published{topic, key, value, headers})
	return nil
}

type ctxKey struct{}

func TestEventSinkEmit(t *testing.T) {
	pub := &fakePublisher{}
	sink := &EventSink{
		Producer:    pub,
		ServiceName: "midtrans-ledger",
		TraceID:     func(ctx context.Context) string { s, _ := ctx.Value(ctxKey{}).(string); return s },
	}
	ctx := context.WithValue(context.Background(), ctxKey{}, "req-1")

	err := sink.Emit(ctx, 42, settlement.EventJournalPosted, settlement.JournalPostedPayload{OrderID: 42, JournalID: 9})
	require.NoError(t, err)

	require.Len(t, pub.msgs, 1)
	m := pub.msgs[0]
	assert.Equal(t, settlement.TopicJournalPosted, m.topic)
	assert.Equal(t, []byte("42"), m.key)
	assert.Equal(t, "x-event-type", m.headers[0].Key)
	assert.Equal(t, settlement.EventJournalPosted, string(m.headers[0].Value))

	var env settlement.Envelope
	require.NoError(t, json.Unmarshal(m.value, &env))
	assert.Equal(t, settlement.EventJournalPosted, env.EventType)
	assert.Equal(t, "42", env.CorrelationID)
	assert.Equal(t, "req-1", env.TraceID)
	assert.Equal(t, "midtrans-ledger", env.Producer)
	assert.NotEmpty(t, env.EventID)

	p, err := UnwrapPayload[settlement.JournalPostedPayload](env.Payload)
	require.NoError(t, err)
	assert.Equal(t, int64(9), p.JournalID)
}

func TestTopicRouting(t *testing.T) {
	assert.Equal(t, settlement.TopicOrderSettled, settlement.TopicFor(settlement.EventOrderSettled))
	assert.Equal(t, settlement.TopicOrderFailed, settlement.TopicFor(settlement.EventOrderPaymentFailed))
	assert.Equal(t, settlement.TopicNotification, settlement.TopicFor(settlement.EventNotificationDeferred))
	assert.Equal(t, settlement.TopicOrderStatus, settlement.TopicFor(settlement.EventOrderStatusChanged))
}

func TestProducerRejectsAfterClose(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, 1, nil)
	p.Close()
	p.Close()
	assert.ErrorIs(t, p.Publish(context.Background(), "t", nil, nil), ErrProducerClosed)
}

func TestDecodeEnvelope(t *testing.T) {
	env, err := NewEnvelope("svc", settlement.EventOrderSettled, 5, settlement.OrderStatusPayload{OrderID: 5, Status: settlement.StatusSettle})
	require.NoError(t, err)

	got, err := DecodeEnvelope(kafka.Message{Value: MustMarshal(env)})
	require.NoError(t, err)
	assert.Equal(t, env.EventID, got.EventID)

	env.EventVersion = envelopeVersion + 1
	_, err = DecodeEnvelope(kafka.Message{Value: MustMarshal(env)})
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	_, err = DecodeEnvelope(kafka.Message{Value: []byte("{")})
	assert.Error(t, err)
}

func TestPublishGivesUpWhenInboxFull(t *testing.T) {
	// tanpa Start: inbox tidak pernah dikuras
	p := NewProducer([]string{"localhost:9092"}, 1, nil)
	require.NoError(t, p.Publish(context.Background(), "t", nil, []byte("1")))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := p.Publish(ctx, "t", nil, []byte("2"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)

	p.Close()
	assert.ErrorIs(t, p.Publish(context.Background(), "t", nil, nil), ErrProducerClosed)
}

func TestEmitHonoursContextWhenProducerBacksUp(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, 1, nil)
	sink := &EventSink{Producer: p, ServiceName: "midtrans-ledger"}

	require.NoError(t, sink.Emit(context.Background(), 1, settlement.EventOrderSettled, map[string]int{"n": 1}))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- sink.Emit(ctx, 2, settlement.EventOrderSettled, map[string]int{"n": 2}) }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked past its context deadline")
	}
}
