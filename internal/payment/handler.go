package payment

import (
	"encoding/json"
	"log/slog"
	"net/http"

	errors "github.com/frahmantamala/learning-platform/internal"
	"github.com/frahmantamala/learning-platform/internal/core/common/validation"
	"github.com/frahmantamala/learning-platform/internal/transport"
)

type Handler struct {
	*transport.BaseHandler
	PaymentService ServiceAPI
	Logger         *slog.Logger
}

func NewHandler(baseHandler *transport.BaseHandler, paymentService ServiceAPI, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler:    baseHandler,
		PaymentService: paymentService,
		Logger:         logger,
	}
}

// InitiatePurchase handles POST /api/v1/payments/orders
func (h *Handler) InitiatePurchase(w http.ResponseWriter, r *http.Request) {
	learner, ok := errors.LearnerFromContext(r.Context())
	if !ok {
		h.HandleError(w, errors.ErrMissingToken)
		return
	}

	var req InitiatePurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Warn("InitiatePurchase: failed to parse request body", "error", err)
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeInvalidBody))
		return
	}
	if err := req.Validate(); err != nil {
		h.HandleError(w, err)
		return
	}

	session, err := h.PaymentService.InitiatePurchase(r.Context(), InitiatePurchaseInput{
		LearnerID: learner.ID,
		ProgramID: req.ProgramID,
	})
	if err != nil {
		h.Logger.Warn("InitiatePurchase: service error", "error", err, "learner_id", learner.ID, "program_id", req.ProgramID)
		h.HandleError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, session)
}

// VerifyPayment handles POST /api/v1/payments/verify
func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	learner, ok := errors.LearnerFromContext(r.Context())
	if !ok {
		h.HandleError(w, errors.ErrMissingToken)
		return
	}

	var req VerifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Warn("VerifyPayment: failed to parse request body", "error", err)
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeInvalidBody))
		return
	}
	if err := req.Validate(); err != nil {
		h.HandleError(w, err)
		return
	}

	result, err := h.PaymentService.Verify(r.Context(), req.OrderID, learner.ID)
	if err != nil {
		h.Logger.Warn("VerifyPayment: service error", "error", err, "learner_id", learner.ID, "gateway_order_id", req.OrderID)
		h.HandleError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

// ListOrders handles GET /api/v1/payments/orders
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	learner, ok := errors.LearnerFromContext(r.Context())
	if !ok {
		h.HandleError(w, errors.ErrMissingToken)
		return
	}

	limit, offset := h.ParsePagination(r, 20)
	if err := validation.ValidatePagination(limit, offset); err != nil {
		h.HandleError(w, err)
		return
	}

	orders, err := h.PaymentService.ListOrders(r.Context(), learner.ID, int(limit), int(offset))
	if err != nil {
		h.HandleError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, OrderListResponse{Orders: orders, Limit: limit, Offset: offset})
}
