package settlement

import (
	"context"
	"encoding/json"
	"strconv"
	"time"
)

const (
	EventOrderSettled       = "OrderSettled"
	EventOrderPaymentFailed = "OrderPaymentFailed"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventJournalPosted      = "JournalPosted"
	// notifikasi yang gagal diproses, untuk replay worker
	EventNotificationDeferred = "NotificationDeferred"
)

const (
	TopicNotification  = "payment.notification"
	TopicOrderSettled  = "payment.order.settled"
	TopicOrderFailed   = "payment.order.failed"
	TopicOrderStatus   = "payment.order.status"
	TopicJournalPosted = "ledger.journal.posted"
)

// TopicFor returns the topic an event type is published on.
func TopicFor(eventType string) string {
	switch eventType {
	case EventOrderSettled:
		return TopicOrderSettled
	case EventOrderPaymentFailed:
		return TopicOrderFailed
	case EventJournalPosted:
		return TopicJournalPosted
	case EventNotificationDeferred:
		return TopicNotification
	default:
		return TopicOrderStatus
	}
}

// Partition key = order_id, supaya semua event 1 order maintain urutan.
func PartitionKey(orderID int64) []byte { return []byte(strconv.FormatInt(orderID, 10)) }

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

type OrderStatusPayload struct {
	OrderID         int64       `json:"order_id"`
	Status          OrderStatus `json:"status"`
	ProviderStatus  string      `json:"provider_status"`
	TransactionID   string      `json:"transaction_id"`
	JournalRecorded bool        `json:"journal_recorded"`
	Outcome         Outcome     `json:"outcome"`
}

type JournalPostedPayload struct {
	OrderID   int64 `json:"order_id"`
	JournalID int64 `json:"journal_id"`
}

// EventSink publishes domain events. Implementations must not block for long.
type EventSink interface {
	Emit(ctx context.Context, orderID int64, eventType string, payload any) error
}

// Locker serializes processing of a single order across instances.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}

type StatusCache interface {
	SetStatus(ctx context.Context, orderID int64, status OrderStatus) error
}
