package payment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/learning-platform/internal/core/events"
)

// EventHandler records failed payments and raises amount-mismatch alerts.
type EventHandler struct {
	logger *slog.Logger
}

func NewEventHandler(logger *slog.Logger) *EventHandler {
	return &EventHandler{
		logger: logger,
	}
}

func (h *EventHandler) HandlePaymentFailed(ctx context.Context, event events.Event) error {
	failed, ok := event.(*events.PaymentFailedEvent)
	if !ok {
		return fmt.Errorf("expected PaymentFailedEvent, got %T", event)
	}

	h.logger.Info("payment failed",
		"event_id", failed.EventID(),
		"order_id", failed.OrderID,
		"gateway_order_id", failed.GatewayOrderID,
		"learner_id", failed.LearnerID,
		"failure_reason", failed.FailureReason)
	return nil
}

func (h *EventHandler) HandleAmountMismatch(ctx context.Context, event events.Event) error {
	mismatch, ok := event.(*events.AmountMismatchEvent)
	if !ok {
		return fmt.Errorf("expected AmountMismatchEvent, got %T", event)
	}

	h.logger.Error("ALERT: payment amount mismatch",
		"event_id", mismatch.EventID(),
		"order_id", mismatch.OrderID,
		"gateway_order_id", mismatch.GatewayOrderID,
		"learner_id", mismatch.LearnerID,
		"expected_amount", mismatch.Expected.StringFixed(2),
		"claimed_amount", mismatch.Claimed.StringFixed(2),
		"currency", mismatch.Currency)
	return nil
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.Subscribe(events.EventTypePaymentFailed, h.HandlePaymentFailed)
	eventBus.Subscribe(events.EventTypePaymentAmountMismatch, h.HandleAmountMismatch)

	h.logger.Info("payment event handlers registered",
		"handlers", []string{events.EventTypePaymentFailed, events.EventTypePaymentAmountMismatch})
}
