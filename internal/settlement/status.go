package settlement

import "strings"

type OrderStatus string

const (
	StatusPending OrderStatus = "pending"
	StatusSettle  OrderStatus = "settle"
	StatusFailed  OrderStatus = "failed"
)

// Status transaksi dari Midtrans.
const (
	ProviderCapture    = "capture"
	ProviderSettlement = "settlement"
	ProviderDeny       = "deny"
	ProviderExpire     = "expire"
	ProviderCancel     = "cancel"
)

var providerStatusMap = map[string]OrderStatus{
	ProviderCapture:    StatusSettle,
	ProviderSettlement: StatusSettle,
	ProviderDeny:       StatusFailed,
	ProviderExpire:     StatusFailed,
	ProviderCancel:     StatusFailed,
}

// MapProviderStatus maps a gateway transaction status onto an order status.
// Unknown values pass through unchanged; an empty value is treated as pending.
func MapProviderStatus(s string) OrderStatus {
	if st, ok := providerStatusMap[s]; ok {
		return st
	}
	if strings.TrimSpace(s) == "" {
		return StatusPending
	}
	return OrderStatus(s)
}
