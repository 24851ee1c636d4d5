package settlement

import "context"

// JournalLookup answers whether an order already has a journal header.
type JournalLookup interface {
	JournalExists(ctx context.Context, orderID int64) (bool, error)
}

// SnapshotReader reads an order with its lines and referenced products.
// Lines whose product row is missing come back with a nil Product.
type SnapshotReader interface {
	LoadOrder(ctx context.Context, orderID int64) (Snapshot, error)
}

type StockWriter interface {
	ProductStock(ctx context.Context, productID int64) (int, error)
	// CompareAndSetStock writes next only when the stored value equals expected.
	CompareAndSetStock(ctx context.Context, productID int64, expected, next int) (bool, error)
}

// Tx is the set of ledger writes performed inside one transactional scope.
type Tx interface {
	JournalLookup
	SnapshotReader
	StockWriter
	// InsertJournalHeader sets e.ID. Returns ErrDuplicateJournal when the
	// order already has a header.
	InsertJournalHeader(ctx context.Context, e *JournalEntry) error
	InsertJournalLines(ctx context.Context, lines []JournalLine) error
	InsertInventoryMovements(ctx context.Context, ms []InventoryMovement) error
}

type Store interface {
	// InTx commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(tx Tx) error) error
	// UpdateOrderStatus reports false when no order row matched.
	UpdateOrderStatus(ctx context.Context, orderID int64, status OrderStatus, providerRef string) (bool, error)
	GetOrderStatus(ctx context.Context, orderID int64) (OrderStatus, error)
	ListSettledWithoutJournal(ctx context.Context, limit int) ([]int64, error)
}
