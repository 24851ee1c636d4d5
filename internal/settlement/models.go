package settlement

import (
	"time"

	"github.com/shopspring/decimal"
)

// Chart of accounts yang dipakai composer. Kas & penjualan tidak per-tenant.
const (
	AccountCash             = "1-1100"
	AccountSales            = "4-1100"
	DefaultInventoryAccount = "1-1200"
	DefaultCOGSAccount      = "5-1100"
)

const (
	EntryTypeRegular  = "REGULAR"
	MovementTypeIssue = "ISSUE"
)

type Order struct {
	ID          int64
	TotalAmount decimal.Decimal
	UserID      string
	Status      OrderStatus // lihat status.go
	ProviderRef string
}

type OrderLine struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
	Product   *Product // nil kalau produk tidak ditemukan
}

type Product struct {
	ID               int64
	CostPrice        decimal.Decimal
	Stock            int
	InventoryAccount string
	COGSAccount      string
}

// Snapshot is an order with its lines and products as read at call time.
type Snapshot struct {
	Order Order
	Lines []OrderLine
}

type JournalEntry struct {
	ID              int64
	OrderID         int64
	TransactionDate time.Time
	Description     string
	EntryType       string
	UserID          string
}

type JournalLine struct {
	JournalID   int64
	AccountCode string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
}

type InventoryMovement struct {
	ProductID      int64
	MovementDate   time.Time
	MovementType   string
	QuantityChange int // negatif untuk ISSUE
	UnitCost       decimal.Decimal
	Reference      string
}

// StockDelta is the aggregated quantity sold for one product, together with
// the stock value observed in the snapshot.
type StockDelta struct {
	ProductID     int64
	SnapshotStock int
	QuantitySold  int
}
