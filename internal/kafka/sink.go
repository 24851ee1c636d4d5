package kafka

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/ariefcatur/midtrans-ledger/internal/settlement"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const envelopeVersion = 1

type publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte, headers ...kafka.Header) error
}

// EventSink wraps domain payloads in an Envelope and publishes them.
type EventSink struct {
	Producer    publisher
	ServiceName string
	// TraceID reads a request id from ctx, opsional.
	TraceID func(ctx context.Context) string
}

var _ settlement.EventSink = (*EventSink)(nil)

func NewEnvelope(producer, eventType string, orderID int64, payload any) (settlement.Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return settlement.Envelope{}, err
	}
	return settlement.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  envelopeVersion,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: strconv.FormatInt(orderID, 10),
		Payload:       raw,
	}, nil
}

func (s *EventSink) Emit(ctx context.Context, orderID int64, eventType string, payload any) error {
	ev, err := NewEnvelope(s.ServiceName, eventType, orderID, payload)
	if err != nil {
		return err
	}
	if s.TraceID != nil {
		ev.TraceID = s.TraceID(ctx)
	}
	return s.Publish(ctx, settlement.TopicFor(eventType), orderID, ev)
}

// Publish sends an already built envelope to topic.
func (s *EventSink) Publish(ctx context.Context, topic string, orderID int64, ev settlement.Envelope) error {
	return s.Producer.Publish(ctx, topic, settlement.PartitionKey(orderID), MustMarshal(ev),
		kafka.Header{Key: "x-event-type", Value: []byte(ev.EventType)},
		kafka.Header{Key: "x-event-version", Value: []byte(strconv.Itoa(ev.EventVersion))},
	)
}
