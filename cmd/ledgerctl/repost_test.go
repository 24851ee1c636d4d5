package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/ariefcatur/midtrans-ledger/internal/settlement"
	"github.com/ariefcatur/midtrans-ledger/internal/settlement/memstore"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func settledStore() *memstore.Store {
	st := memstore.New()
	st.AddProduct(settlement.Product{ID: 7, CostPrice: decimal.NewFromInt(20000), Stock: 10})
	st.AddOrder(settlement.Order{ID: 42, TotalAmount: decimal.NewFromInt(100000), Status: settlement.StatusSettle},
		settlement.OrderLine{ProductID: 7, Quantity: 2})
	st.AddOrder(settlement.Order{ID: 43, TotalAmount: decimal.NewFromInt(50000), Status: settlement.StatusPending})
	return st
}

func TestRepostScansSettledOrders(t *testing.T) {
	st := settledStore()
	c := &settlement.Composer{Store: st, Log: zap.NewNop()}
	var out bytes.Buffer

	failed, err := repost(context.Background(), st, c, nil, 100, &out)
	require.NoError(t, err)
	assert.Zero(t, failed)
	assert.Contains(t, out.String(), "order 42: posted journal")
	assert.NotContains(t, out.String(), "order 43")

	p, _ := st.Product(7)
	assert.Equal(t, 8, p.Stock)

	out.Reset()
	failed, err = repost(context.Background(), st, c, nil, 100, &out)
	require.NoError(t, err)
	assert.Zero(t, failed)
	assert.Equal(t, "nothing to repost\n", out.String())
}

func TestRepostExplicitIDs(t *testing.T) {
	st := settledStore()
	c := &settlement.Composer{Store: st, Log: zap.NewNop()}
	var out bytes.Buffer

	failed, err := repost(context.Background(), st, c, []int64{42, 42, 99}, 0, &out)
	require.NoError(t, err)
	assert.Equal(t, 1, failed)
	assert.Contains(t, out.String(), "order 42: posted journal")
	assert.Contains(t, out.String(), "order 42: duplicate")
	assert.Contains(t, out.String(), "order 99: failed")
	assert.Len(t, st.Journals(), 1)
}

func TestRepostListError(t *testing.T) {
	st := settledStore()
	boom := errors.New("db down")
	st.Fail = func(op string) error {
		if op == memstore.OpListUnposted {
			return boom
		}
		return nil
	}
	_, err := repost(context.Background(), st, &settlement.Composer{Store: st}, nil, 10, &bytes.Buffer{})
	assert.ErrorIs(t, err, boom)
}

func TestParseOrderIDs(t *testing.T) {
	ids, err := parseOrderIDs([]string{"1", "42"})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 42}, ids)

	_, err = parseOrderIDs([]string{"42-1699"})
	assert.Error(t, err)
	_, err = parseOrderIDs([]string{"0"})
	assert.Error(t, err)
}
