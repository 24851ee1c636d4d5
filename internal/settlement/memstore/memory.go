// Package memstore is an in-memory settlement.Store with transactional
// rollback, used by tests and local tooling.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/ariefcatur/midtrans-ledger/internal/settlement"
)

// Operation names passed to Store.Fail.
const (
	OpJournalExists   = "journal_exists"
	OpLoadOrder       = "load_order"
	OpInsertHeader    = "insert_header"
	OpInsertLines     = "insert_lines"
	OpInsertMovements = "insert_movements"
	OpProductStock    = "product_stock"
	OpCompareAndSet   = "cas_stock"
	OpUpdateStatus    = "update_status"
	OpGetStatus       = "get_status"
	OpListUnposted    = "list_unposted"
)

type state struct {
	orders       map[int64]settlement.Order
	lines        map[int64][]settlement.OrderLine
	products     map[int64]settlement.Product
	journals     []settlement.JournalEntry
	journalLines []settlement.JournalLine
	movements    []settlement.InventoryMovement
	nextID       int64
}

func (s *state) clone() *state {
	c := &state{
		orders:       make(map[int64]settlement.Order, len(s.orders)),
		lines:        make(map[int64][]settlement.OrderLine, len(s.lines)),
		products:     make(map[int64]settlement.Product, len(s.products)),
		journals:     append([]settlement.JournalEntry(nil), s.journals...),
		journalLines: append([]settlement.JournalLine(nil), s.journalLines...),
		movements:    append([]settlement.InventoryMovement(nil), s.movements...),
		nextID:       s.nextID,
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.lines {
		c.lines[k] = append([]settlement.OrderLine(nil), v...)
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	return c
}

// Store serializes transactions behind one mutex.
type Store struct {
	mu sync.Mutex
	st *state

	// Fail, if set, is consulted before each operation; a non-nil error
	// fails that operation.
	Fail func(op string) error
	// BeforeCAS runs inside CompareAndSetStock and may mutate the product,
	// simulating a concurrent writer.
	BeforeCAS func(p *settlement.Product)
	// BeforeInsertHeader runs inside InsertJournalHeader. Returning true
	// commits a competing journal for the same order first, as if another
	// transaction won the race after the guard ran. That journal survives a
	// rollback of the current transaction.
	BeforeInsertHeader func(orderID int64) bool

	raced []settlement.JournalEntry
}

var _ settlement.Store = (*Store)(nil)

func New() *Store {
	return &Store{st: &state{
		orders:   map[int64]settlement.Order{},
		lines:    map[int64][]settlement.OrderLine{},
		products: map[int64]settlement.Product{},
	}}
}

func (s *Store) fail(op string) error {
	if s.Fail == nil {
		return nil
	}
	return s.Fail(op)
}

func (s *Store) AddProduct(p settlement.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.products[p.ID] = p
}

// AddOrder stores an order and its lines. Line products are resolved at
// load time from the product table, not from the lines passed here.
func (s *Store) AddOrder(o settlement.Order, lines ...settlement.OrderLine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.Status == "" {
		o.Status = settlement.StatusPending
	}
	s.st.orders[o.ID] = o
	for i := range lines {
		lines[i].OrderID = o.ID
		lines[i].Product = nil
	}
	s.st.lines[o.ID] = append([]settlement.OrderLine(nil), lines...)
}

func (s *Store) Order(id int64) (settlement.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.st.orders[id]
	return o, ok
}

func (s *Store) Product(id int64) (settlement.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.st.products[id]
	return p, ok
}

func (s *Store) Journals() []settlement.JournalEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]settlement.JournalEntry(nil), s.st.journals...)
}

func (s *Store) JournalLines(journalID int64) []settlement.JournalLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []settlement.JournalLine
	for _, l := range s.st.journalLines {
		if l.JournalID == journalID {
			out = append(out, l)
		}
	}
	return out
}

func (s *Store) Movements() []settlement.InventoryMovement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]settlement.InventoryMovement(nil), s.st.movements...)
}

func (s *Store) InTx(ctx context.Context, fn func(tx settlement.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	backup := s.st.clone()
	err := fn(&memTx{s: s})
	if err != nil {
		s.st = backup
		for _, j := range s.raced {
			s.st.journals = append(s.st.journals, j)
			if j.ID > s.st.nextID {
				s.st.nextID = j.ID
			}
		}
	}
	s.raced = nil
	return err
}

func (s *Store) UpdateOrderStatus(ctx context.Context, orderID int64, status settlement.OrderStatus, providerRef string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(OpUpdateStatus); err != nil {
		return false, err
	}
	o, ok := s.st.orders[orderID]
	if !ok {
		return false, nil
	}
	o.Status = status
	o.ProviderRef = providerRef
	s.st.orders[orderID] = o
	return true, nil
}

func (s *Store) GetOrderStatus(ctx context.Context, orderID int64) (settlement.OrderStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(OpGetStatus); err != nil {
		return "", err
	}
	o, ok := s.st.orders[orderID]
	if !ok {
		return "", &settlement.NotFoundError{Entity: "order", ID: orderID}
	}
	return o.Status, nil
}

func (s *Store) ListSettledWithoutJournal(ctx context.Context, limit int) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(OpListUnposted); err != nil {
		return nil, err
	}
	posted := map[int64]bool{}
	for _, j := range s.st.journals {
		posted[j.OrderID] = true
	}
	var out []int64
	for id, o := range s.st.orders {
		if o.Status == settlement.StatusSettle && !posted[id] {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// memTx runs with Store.mu held by InTx.
type memTx struct{ s *Store }

func (t *memTx) JournalExists(ctx context.Context, orderID int64) (bool, error) {
	if err := t.s.fail(OpJournalExists); err != nil {
		return false, err
	}
	for _, j := range t.s.st.journals {
		if j.OrderID == orderID {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) LoadOrder(ctx context.Context, orderID int64) (settlement.Snapshot, error) {
	if err := t.s.fail(OpLoadOrder); err != nil {
		return settlement.Snapshot{}, err
	}
	o, ok := t.s.st.orders[orderID]
	if !ok {
		return settlement.Snapshot{}, &settlement.NotFoundError{Entity: "order", ID: orderID}
	}
	snap := settlement.Snapshot{Order: o}
	for _, ln := range t.s.st.lines[orderID] {
		if p, ok := t.s.st.products[ln.ProductID]; ok {
			p := p
			ln.Product = &p
		}
		snap.Lines = append(snap.Lines, ln)
	}
	return snap, nil
}

func (t *memTx) InsertJournalHeader(ctx context.Context, e *settlement.JournalEntry) error {
	if err := t.s.fail(OpInsertHeader); err != nil {
		return err
	}
	if t.s.BeforeInsertHeader != nil && t.s.BeforeInsertHeader(e.OrderID) {
		t.s.st.nextID++
		rival := settlement.JournalEntry{ID: t.s.st.nextID, OrderID: e.OrderID, EntryType: settlement.EntryTypeRegular}
		t.s.st.journals = append(t.s.st.journals, rival)
		t.s.raced = append(t.s.raced, rival)
	}
	for _, j := range t.s.st.journals {
		if j.OrderID == e.OrderID {
			return settlement.ErrDuplicateJournal
		}
	}
	t.s.st.nextID++
	e.ID = t.s.st.nextID
	t.s.st.journals = append(t.s.st.journals, *e)
	return nil
}

func (t *memTx) InsertJournalLines(ctx context.Context, lines []settlement.JournalLine) error {
	if err := t.s.fail(OpInsertLines); err != nil {
		return err
	}
	t.s.st.journalLines = append(t.s.st.journalLines, lines...)
	return nil
}

func (t *memTx) InsertInventoryMovements(ctx context.Context, ms []settlement.InventoryMovement) error {
	if err := t.s.fail(OpInsertMovements); err != nil {
		return err
	}
	t.s.st.movements = append(t.s.st.movements, ms...)
	return nil
}

func (t *memTx) ProductStock(ctx context.Context, productID int64) (int, error) {
	if err := t.s.fail(OpProductStock); err != nil {
		return 0, err
	}
	p, ok := t.s.st.products[productID]
	if !ok {
		return 0, &settlement.NotFoundError{Entity: "product", ID: productID}
	}
	return p.Stock, nil
}

func (t *memTx) CompareAndSetStock(ctx context.Context, productID int64, expected, next int) (bool, error) {
	if err := t.s.fail(OpCompareAndSet); err != nil {
		return false, err
	}
	p, ok := t.s.st.products[productID]
	if !ok {
		return false, nil
	}
	if t.s.BeforeCAS != nil {
		t.s.BeforeCAS(&p)
		t.s.st.products[productID] = p
	}
	if p.Stock != expected {
		return false, nil
	}
	p.Stock = next
	t.s.st.products[productID] = p
	return true, nil
}
