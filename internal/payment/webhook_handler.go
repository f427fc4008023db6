package payment

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	errors "github.com/frahmantamala/learning-platform/internal"
	"github.com/frahmantamala/learning-platform/internal/gateway"
	"github.com/frahmantamala/learning-platform/internal/transport"
)

const (
	HeaderWebhookTimestamp = "X-Webhook-Timestamp"
	HeaderWebhookSignature = "X-Webhook-Signature"

	maxCallbackBodyBytes = 1 << 20
)

type CallbackProcessor interface {
	ProcessCallback(ctx context.Context, payload *gateway.CallbackPayload) error
}

type SignatureVerifier interface {
	VerifyCallback(timestamp string, rawBody []byte, signature string) bool
}

type WebhookHandler struct {
	*transport.BaseHandler
	processor CallbackProcessor
	verifier  SignatureVerifier
	logger    *slog.Logger
}

func NewWebhookHandler(baseHandler *transport.BaseHandler, processor CallbackProcessor, verifier SignatureVerifier, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler: baseHandler,
		processor:   processor,
		verifier:    verifier,
		logger:      logger,
	}
}

// HandleCallback handles POST /api/v1/payments/webhook.
// Only missing headers (400) and bad signatures (401) are rejected; everything else is
// acknowledged with 200 so the gateway stops retrying.
func (h *WebhookHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	timestamp := r.Header.Get(HeaderWebhookTimestamp)
	signature := r.Header.Get(HeaderWebhookSignature)
	if timestamp == "" || signature == "" {
		h.logger.Warn("payment callback missing signature headers")
		h.HandleError(w, errors.ErrMissingSignature)
		return
	}

	rawBody, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCallbackBodyBytes))
	if err != nil {
		h.logger.Warn("payment callback body unreadable", "error", err)
		h.ack(w)
		return
	}

	if !h.verifier.VerifyCallback(timestamp, rawBody, signature) {
		h.logger.Warn("payment callback signature rejected", "timestamp", timestamp)
		h.HandleError(w, errors.ErrInvalidSignature)
		return
	}

	var payload gateway.CallbackPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		h.logger.Warn("payment callback body malformed", "error", err)
		h.ack(w)
		return
	}
	if payload.Data.Order.OrderID == "" {
		h.logger.Warn("payment callback without order id", "type", payload.Type)
		h.ack(w)
		return
	}

	h.logger.Info("payment callback received",
		"type", payload.Type,
		"gateway_order_id", payload.Data.Order.OrderID,
		"payment_status", payload.Data.Payment.PaymentStatus,
		"gateway_payment_id", string(payload.Data.Payment.CFPaymentID))

	if err := h.processor.ProcessCallback(r.Context(), &payload); err != nil {
		h.logger.Error("payment callback processing failed",
			"error", err,
			"gateway_order_id", payload.Data.Order.OrderID)
	}

	h.ack(w)
}

func (h *WebhookHandler) ack(w http.ResponseWriter) {
	h.WriteJSON(w, http.StatusOK, CallbackAck{Status: "ok"})
}
