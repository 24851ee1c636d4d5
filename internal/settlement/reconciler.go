package settlement

import (
	"context"
	"fmt"
)

const defaultCASAttempts = 3

// NewStock is the floor-at-zero decrement.
func NewStock(current, sold int) int {
	if n := current - sold; n > 0 {
		return n
	}
	return 0
}

// Reconciler applies stock decrements with compare-and-swap writes.
type Reconciler struct {
	MaxAttempts int
}

// Apply decrements one product's stock starting from the snapshot value and
// returns the stock that was written.
func (r Reconciler) Apply(ctx context.Context, w StockWriter, d StockDelta) (int, error) {
	attempts := r.MaxAttempts
	if attempts <= 0 {
		attempts = defaultCASAttempts
	}

	current := d.SnapshotStock
	for i := 0; i < attempts; i++ {
		next := NewStock(current, d.QuantitySold)
		ok, err := w.CompareAndSetStock(ctx, d.ProductID, current, next)
		if err != nil {
			return 0, storageErr("update stock", err)
		}
		if ok {
			return next, nil
		}
		// stok berubah sejak snapshot -> baca ulang
		current, err = w.ProductStock(ctx, d.ProductID)
		if err != nil {
			return 0, storageErr("read stock", err)
		}
	}
	return 0, fmt.Errorf("product %d after %d attempts: %w", d.ProductID, attempts, ErrStockConflict)
}
