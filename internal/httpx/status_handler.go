package httpx

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/ariefcatur/midtrans-ledger/internal/settlement"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type StatusReader interface {
	GetOrderStatus(ctx context.Context, orderID int64) (settlement.OrderStatus, error)
}

type StatusCache interface {
	settlement.StatusCache
	GetStatus(ctx context.Context, orderID int64) (settlement.OrderStatus, bool, error)
}

type StatusResp struct {
	OrderID int64                  `json:"order_id"`
	Status  settlement.OrderStatus `json:"status"`
	Cached  bool                   `json:"cached"`
}

type StatusHandler struct {
	Store StatusReader
	Cache StatusCache // opsional
	Log   *zap.Logger
}

func (h *StatusHandler) Register(r chi.Router) {
	r.Get("/orders/{id}/status", h.getStatus)
}

func (h *StatusHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || orderID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) coba cache
	if h.Cache != nil {
		if s, ok, err := h.Cache.GetStatus(ctx, orderID); err == nil && ok {
			writeJSON(w, http.StatusOK, StatusResp{OrderID: orderID, Status: s, Cached: true})
			return
		}
	}

	// 2) fallback DB
	status, err := h.Store.GetOrderStatus(ctx, orderID)
	if err != nil {
		if settlement.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		if h.Log != nil {
			h.Log.Error("read order status", zap.Int64("order_id", orderID), zap.Error(err))
		}
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if h.Cache != nil {
		if err := h.Cache.SetStatus(ctx, orderID, status); err != nil && h.Log != nil {
			h.Log.Warn("status cache write failed", zap.Int64("order_id", orderID), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, StatusResp{OrderID: orderID, Status: status})
}
