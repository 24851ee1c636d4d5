package settlement_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ariefcatur/midtrans-ledger/internal/settlement"
	"github.com/ariefcatur/midtrans-ledger/internal/settlement/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStockFloorsAtZero(t *testing.T) {
	cases := []struct{ current, sold, want int }{
		{10, 2, 8},
		{2, 2, 0},
		{2, 5, 0},
		{0, 1, 0},
		{0, 0, 0},
		{5, 1 << 30, 0},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, settlement.NewStock(c.current, c.sold), "%d - %d", c.current, c.sold)
	}
}

func applyInTx(t *testing.T, st *memstore.Store, r settlement.Reconciler, d settlement.StockDelta) (int, error) {
	t.Helper()
	var (
		got    int
		runErr error
	)
	err := st.InTx(context.Background(), func(tx settlement.Tx) error {
		got, runErr = r.Apply(context.Background(), tx, d)
		return runErr
	})
	if runErr == nil {
		require.NoError(t, err)
	}
	return got, runErr
}

func TestReconcilerUsesSnapshotStock(t *testing.T) {
	st := memstore.New()
	st.AddProduct(settlement.Product{ID: 7, Stock: 10})

	got, err := applyInTx(t, st, settlement.Reconciler{}, settlement.StockDelta{ProductID: 7, SnapshotStock: 10, QuantitySold: 3})
	require.NoError(t, err)
	assert.Equal(t, 7, got)

	p, _ := st.Product(7)
	assert.Equal(t, 7, p.Stock)
}

func TestReconcilerRetriesOnConcurrentChange(t *testing.T) {
	st := memstore.New()
	st.AddProduct(settlement.Product{ID: 7, Stock: 10})

	// penjualan lain mengurangi 4 sebelum CAS pertama
	calls := 0
	st.BeforeCAS = func(p *settlement.Product) {
		calls++
		if calls == 1 {
			p.Stock -= 4
		}
	}

	got, err := applyInTx(t, st, settlement.Reconciler{}, settlement.StockDelta{ProductID: 7, SnapshotStock: 10, QuantitySold: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, got, "both decrements must survive")
	assert.Equal(t, 2, calls)
}

func TestReconcilerGivesUpAfterMaxAttempts(t *testing.T) {
	st := memstore.New()
	st.AddProduct(settlement.Product{ID: 7, Stock: 100})
	st.BeforeCAS = func(p *settlement.Product) { p.Stock-- }

	_, err := applyInTx(t, st, settlement.Reconciler{MaxAttempts: 2}, settlement.StockDelta{ProductID: 7, SnapshotStock: 100, QuantitySold: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, settlement.ErrStockConflict)

	p, _ := st.Product(7)
	assert.Equal(t, 100, p.Stock, "transaction rolled back")
}

func TestReconcilerWrapsStorageErrors(t *testing.T) {
	st := memstore.New()
	st.AddProduct(settlement.Product{ID: 7, Stock: 5})
	boom := errors.New("connection reset")
	st.Fail = func(op string) error {
		if op == memstore.OpCompareAndSet {
			return boom
		}
		return nil
	}

	_, err := applyInTx(t, st, settlement.Reconciler{}, settlement.StockDelta{ProductID: 7, SnapshotStock: 5, QuantitySold: 1})
	require.Error(t, err)
	assert.True(t, settlement.IsStorage(err))
	assert.ErrorIs(t, err, boom)
}
