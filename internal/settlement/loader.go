package settlement

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

// Loader reads an order snapshot and fills in chart-of-accounts defaults.
type Loader struct{}

func (Loader) Load(ctx context.Context, r SnapshotReader, orderID int64) (Snapshot, error) {
	snap, err := r.LoadOrder(ctx, orderID)
	if err != nil {
		if IsNotFound(err) {
			return Snapshot{}, err
		}
		return Snapshot{}, storageErr("load order", err)
	}
	if snap.Order.ID == 0 {
		return Snapshot{}, &NotFoundError{Entity: "order", ID: orderID}
	}
	for i := range snap.Lines {
		snap.Lines[i].Product = normalizeProduct(snap.Lines[i].Product)
	}
	return snap, nil
}

func normalizeProduct(p *Product) *Product {
	if p == nil {
		return nil
	}
	out := *p
	if strings.TrimSpace(out.InventoryAccount) == "" {
		out.InventoryAccount = DefaultInventoryAccount
	}
	if strings.TrimSpace(out.COGSAccount) == "" {
		out.COGSAccount = DefaultCOGSAccount
	}
	if out.CostPrice.IsNegative() {
		out.CostPrice = decimal.Zero
	}
	if out.Stock < 0 {
		out.Stock = 0
	}
	return &out
}
