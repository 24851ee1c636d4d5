package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ariefcatur/midtrans-ledger/internal/settlement"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const (
	maxNotificationBytes = 1 << 20
	deferTimeout         = 5 * time.Second
)

type NotificationProcessor interface {
	Handle(ctx context.Context, n settlement.Notification) (settlement.Result, error)
}

type SignatureVerifier interface {
	Verify(orderID, statusCode, grossAmount, signatureKey string) error
}

type WebhookResp struct {
	Status           string `json:"status"`
	JournalProcessed bool   `json:"journal_processed"`
}

// WebhookHandler menerima HTTP notification dari Midtrans.
type WebhookHandler struct {
	Processor NotificationProcessor
	Verifier  SignatureVerifier    // nil = tanpa verifikasi
	Deferred  settlement.EventSink // notifikasi yang gagal dikirim ke replay topic
	Log       *zap.Logger
}

func (h *WebhookHandler) Register(r chi.Router) {
	r.Post("/midtrans/notification", h.notification)
}

func (h *WebhookHandler) logger() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}

func (h *WebhookHandler) notification(w http.ResponseWriter, r *http.Request) {
	log := h.logger().With(zap.String("request_id", middleware.GetReqID(r.Context())))

	var n settlement.Notification
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxNotificationBytes)).Decode(&n); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if n.OrderID == "" {
		writeError(w, http.StatusBadRequest, "missing order_id")
		return
	}

	if h.Verifier != nil {
		if err := h.Verifier.Verify(string(n.OrderID), n.StatusCode, n.GrossAmount, n.SignatureKey); err != nil {
			log.Warn("notification signature rejected", zap.String("order_id", string(n.OrderID)))
			writeError(w, http.StatusUnauthorized, "invalid signature")
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := h.Processor.Handle(ctx, n)
	if err != nil {
		var ve *settlement.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
			return
		}
		log.Error("notification processing failed", zap.String("order_id", string(n.OrderID)), zap.Error(err))
		h.deferNotification(r.Context(), log, n)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, WebhookResp{Status: "ok", JournalProcessed: res.JournalRecorded})
}

func (h *WebhookHandler) deferNotification(ctx context.Context, log *zap.Logger, n settlement.Notification) {
	if h.Deferred == nil {
		return
	}
	orderID, err := settlement.ParseOrderRef(string(n.OrderID))
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deferTimeout)
	defer cancel()
	if err := h.Deferred.Emit(ctx, orderID, settlement.EventNotificationDeferred, n); err != nil {
		log.Warn("defer notification failed", zap.Error(err))
	}
}
