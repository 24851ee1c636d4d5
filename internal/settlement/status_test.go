package settlement_test

import (
	"testing"

	"github.com/ariefcatur/midtrans-ledger/internal/settlement"
	"github.com/stretchr/testify/assert"
)

func TestMapProviderStatus(t *testing.T) {
	cases := map[string]settlement.OrderStatus{
		"capture":    settlement.StatusSettle,
		"settlement": settlement.StatusSettle,
		"deny":       settlement.StatusFailed,
		"expire":     settlement.StatusFailed,
		"cancel":     settlement.StatusFailed,
		"pending":    settlement.OrderStatus("pending"),
		"authorize":  settlement.OrderStatus("authorize"),
		"refund":     settlement.OrderStatus("refund"),
		"":           settlement.StatusPending,
	}
	for in, want := range cases {
		assert.Equal(t, want, settlement.MapProviderStatus(in), "provider status %q", in)
	}
}
