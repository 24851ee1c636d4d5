package settlement

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const orderRefSeparator = "-"

// OrderRef is the gateway order id. Midtrans sends it as a string, some
// replays carry it as a JSON number.
type OrderRef string

func (r *OrderRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*r = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = OrderRef(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("order_id: %w", err)
	}
	*r = OrderRef(n.String())
	return nil
}

// Notification is the subset of a Midtrans HTTP notification the ledger uses.
type Notification struct {
	OrderID           OrderRef `json:"order_id"`
	TransactionStatus string   `json:"transaction_status"`
	TransactionID     string   `json:"transaction_id"`
	StatusCode        string   `json:"status_code,omitempty"`
	GrossAmount       string   `json:"gross_amount,omitempty"`
	SignatureKey      string   `json:"signature_key,omitempty"`
	FraudStatus       string   `json:"fraud_status,omitempty"`
}

// ParseOrderRef extracts the numeric order id from "15-1699999999" or "15".
func ParseOrderRef(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	id, _, _ := strings.Cut(raw, orderRefSeparator)
	if id == "" {
		return 0, &ValidationError{Field: "order_id", Value: raw, Reason: "missing"}
	}
	for _, c := range id {
		if c < '0' || c > '9' {
			return 0, &ValidationError{Field: "order_id", Value: raw, Reason: "not numeric"}
		}
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, &ValidationError{Field: "order_id", Value: raw, Reason: err.Error()}
	}
	return n, nil
}

type Result struct {
	Accepted        bool
	JournalRecorded bool
	Outcome         Outcome
	OrderID         int64
	Status          OrderStatus
}

// Processor maps a gateway notification onto an order status transition and,
// for settlements, the journal pipeline.
type Processor struct {
	Store    Store
	Composer *Composer
	Log      *zap.Logger

	// opsional
	Locker   Locker
	LockTTL  time.Duration
	LockWait time.Duration
	Cache    StatusCache
	Events   EventSink
	// EmitTimeout bounds event publishing after the status write; default 2s.
	EmitTimeout time.Duration
}

func lockKey(orderID int64) string { return fmt.Sprintf("lock:settlement:order:%d", orderID) }

func (p *Processor) logger() *zap.Logger {
	if p.Log == nil {
		return zap.NewNop()
	}
	return p.Log
}

// Handle processes one delivery. Only validation failures and a failed
// status write are returned as errors.
func (p *Processor) Handle(ctx context.Context, n Notification) (Result, error) {
	orderID, err := ParseOrderRef(string(n.OrderID))
	if err != nil {
		return Result{}, err
	}
	log := p.logger().With(
		zap.Int64("order_id", orderID),
		zap.String("transaction_status", n.TransactionStatus),
		zap.String("transaction_id", n.TransactionID),
	)
	log.Info("notification received")

	if release := p.lock(ctx, log, orderID); release != nil {
		defer release()
	}

	target := MapProviderStatus(n.TransactionStatus)
	rep := Report{Outcome: OutcomeSkipped}
	if target == StatusSettle {
		rep = p.Composer.Post(ctx, orderID)
	}

	matched, err := p.Store.UpdateOrderStatus(ctx, orderID, target, n.TransactionID)
	if err != nil {
		return Result{}, storageErr("update order status", err)
	}
	if !matched {
		log.Warn("order status update matched no rows")
	}

	res := Result{
		Accepted:        true,
		JournalRecorded: rep.Outcome.Recorded(),
		Outcome:         rep.Outcome,
		OrderID:         orderID,
		Status:          target,
	}
	p.afterUpdate(ctx, log, n, res, rep)
	return res, nil
}

// lock returns a release func, or nil when no lock is held. Failing to get
// the lock is not fatal: the journal unique constraint still applies.
func (p *Processor) lock(ctx context.Context, log *zap.Logger, orderID int64) func() {
	if p.Locker == nil {
		return nil
	}
	ttl := p.LockTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	key := lockKey(orderID)
	deadline := time.Now().Add(p.LockWait)
	for {
		token, ok, err := p.Locker.TryLock(ctx, key, ttl)
		if err != nil {
			log.Warn("order lock unavailable", zap.Error(err))
			return nil
		}
		if ok {
			return func() {
				if err := p.Locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
					log.Warn("order lock release failed", zap.Error(err))
				}
			}
		}
		if !time.Now().Before(deadline) {
			log.Warn("order lock busy, continuing without it")
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func (p *Processor) afterUpdate(ctx context.Context, log *zap.Logger, n Notification, res Result, rep Report) {
	if p.Cache != nil {
		if err := p.Cache.SetStatus(ctx, res.OrderID, res.Status); err != nil {
			log.Warn("status cache write failed", zap.Error(err))
		}
	}
	if p.Events == nil {
		return
	}

	evType := EventOrderStatusChanged
	switch res.Status {
	case StatusSettle:
		evType = EventOrderSettled
	case StatusFailed:
		evType = EventOrderPaymentFailed
	}
	payload := OrderStatusPayload{
		OrderID:         res.OrderID,
		Status:          res.Status,
		ProviderStatus:  n.TransactionStatus,
		TransactionID:   n.TransactionID,
		JournalRecorded: res.JournalRecorded,
		Outcome:         res.Outcome,
	}
	timeout := p.EmitTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := p.Events.Emit(ctx, res.OrderID, evType, payload); err != nil {
		log.Warn("emit status event failed", zap.Error(err))
	}
	if rep.Outcome == OutcomePosted {
		jp := JournalPostedPayload{OrderID: res.OrderID, JournalID: rep.JournalID}
		if err := p.Events.Emit(ctx, res.OrderID, EventJournalPosted, jp); err != nil {
			log.Warn("emit journal event failed", zap.Error(err))
		}
	}
}
