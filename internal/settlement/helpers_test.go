package settlement_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/midtrans-ledger/internal/settlement"
	"github.com/ariefcatur/midtrans-ledger/internal/settlement/memstore"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

var fixedNow = time.Date(2026, time.October, 15, 21, 30, 0, 0, time.UTC)

func amount(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertAmount(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Truef(t, amount(want).Equal(got), "want %s, got %s %v", want, got, msgAndArgs)
}

type fixture struct {
	store     *memstore.Store
	composer  *settlement.Composer
	processor *settlement.Processor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memstore.New()
	log := zaptest.NewLogger(t)
	c := &settlement.Composer{
		Store: st,
		Log:   log,
		Now:   func() time.Time { return fixedNow },
	}
	return &fixture{
		store:    st,
		composer: c,
		processor: &settlement.Processor{
			Store:    st,
			Composer: c,
			Log:      log,
		},
	}
}

// seedOrder42 is the reference order: one line of product 7, qty 2.
func (f *fixture) seedOrder42() {
	f.store.AddProduct(settlement.Product{
		ID:               7,
		CostPrice:        amount("20000"),
		Stock:            10,
		InventoryAccount: "1-1200",
		COGSAccount:      "5-1100",
	})
	f.store.AddOrder(settlement.Order{ID: 42, TotalAmount: amount("100000"), UserID: "user-1"},
		settlement.OrderLine{ID: 1, ProductID: 7, Quantity: 2, UnitPrice: amount("50000")},
	)
}

type recordedEvent struct {
	OrderID   int64
	EventType string
	Payload   any
}

type fakeSink struct {
	mu     sync.Mutex
	events []recordedEvent
	err    error
}

func (s *fakeSink) Emit(ctx context.Context, orderID int64, eventType string, payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, recordedEvent{OrderID: orderID, EventType: eventType, Payload: payload})
	return s.err
}

func (s *fakeSink) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

type fakeCache struct {
	mu  sync.Mutex
	set map[int64]settlement.OrderStatus
}

func (c *fakeCache) SetStatus(ctx context.Context, orderID int64, status settlement.OrderStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.set == nil {
		c.set = map[int64]settlement.OrderStatus{}
	}
	c.set[orderID] = status
	return nil
}
