package payment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/frahmantamala/learning-platform/internal/core/datamodel/order"
	"github.com/frahmantamala/learning-platform/internal/core/events"
)

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Reconciler is the single place where a confirmed or failed payment changes state.
// Callback, poll and sweeper all funnel through it.
type Reconciler struct {
	repo      RepositoryAPI
	publisher EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewReconciler(repo RepositoryAPI, publisher EventPublisher, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (r *Reconciler) ReconcileSuccess(ctx context.Context, o *order.Order, claimedAmount decimal.Decimal, gatewayPaymentID, methodLabel string) (Outcome, error) {
	log := r.logger.With("order_id", o.ID, "gateway_order_id", o.GatewayOrderID, "learner_id", o.LearnerID)

	if o.Status == StatusSuccess {
		log.Debug("order already paid, nothing to reconcile")
		return Outcome{Status: StatusSuccess}, nil
	}

	if !AmountMatches(o.Amount, claimedAmount) {
		return r.rejectAmountMismatch(ctx, log, o, claimedAmount)
	}

	outcome, err := r.repo.CompleteSuccess(ctx, o.ID, gatewayPaymentID, methodLabel, r.now())
	if err != nil {
		log.Error("failed to complete order", "error", err)
		return Outcome{}, fmt.Errorf("complete order %s: %w", o.GatewayOrderID, err)
	}

	if !outcome.Transitioned {
		if outcome.Status == StatusFailed {
			log.Error("success reported for an order already marked failed",
				"gateway_payment_id", gatewayPaymentID,
				"claimed_amount", claimedAmount.StringFixed(2))
		} else {
			log.Info("order already reconciled by another confirmation", "status", outcome.Status)
		}
		return outcome, nil
	}

	log.Info("order paid, enrollment upgraded",
		"enrollment_id", o.EnrollmentID,
		"gateway_payment_id", gatewayPaymentID,
		"payment_method", methodLabel)

	event := events.NewPaymentSucceededEvent(o.ID, o.GatewayOrderID, o.LearnerID, o.ProgramID, o.EnrollmentID, o.Amount, o.Currency, gatewayPaymentID)
	if err := r.publisher.Publish(ctx, event); err != nil {
		log.Error("failed to publish payment succeeded event", "error", err, "event_id", event.EventID())
	}

	return outcome, nil
}

func (r *Reconciler) rejectAmountMismatch(ctx context.Context, log *slog.Logger, o *order.Order, claimed decimal.Decimal) (Outcome, error) {
	log.Error("payment amount mismatch",
		"expected_amount", o.Amount.StringFixed(2),
		"claimed_amount", claimed.StringFixed(2),
		"currency", o.Currency)

	outcome, err := r.repo.MarkFailed(ctx, o.ID, ReasonAmountMismatch, r.now())
	if err != nil {
		log.Error("failed to mark mismatched order failed", "error", err)
		return Outcome{}, fmt.Errorf("mark order %s failed: %w", o.GatewayOrderID, err)
	}

	alert := events.NewAmountMismatchEvent(o.ID, o.GatewayOrderID, o.LearnerID, o.Amount, claimed, o.Currency)
	if err := r.publisher.Publish(ctx, alert); err != nil {
		log.Error("failed to publish amount mismatch alert", "error", err, "event_id", alert.EventID())
	}

	return Outcome{Status: outcome.Status}, nil
}

func (r *Reconciler) ReconcileFailure(ctx context.Context, o *order.Order, reason string) (Outcome, error) {
	log := r.logger.With("order_id", o.ID, "gateway_order_id", o.GatewayOrderID, "learner_id", o.LearnerID)

	if reason == "" {
		reason = ReasonPaymentFailed
	}

	outcome, err := r.repo.MarkFailed(ctx, o.ID, reason, r.now())
	if err != nil {
		log.Error("failed to mark order failed", "error", err)
		return Outcome{}, fmt.Errorf("mark order %s failed: %w", o.GatewayOrderID, err)
	}

	if !outcome.Transitioned {
		log.Info("failure ignored, order already terminal", "status", outcome.Status)
		return outcome, nil
	}

	log.Info("order marked failed", "failure_reason", reason)

	event := events.NewPaymentFailedEvent(o.ID, o.GatewayOrderID, o.LearnerID, reason)
	if err := r.publisher.Publish(ctx, event); err != nil {
		log.Error("failed to publish payment failed event", "error", err, "event_id", event.EventID())
	}

	return outcome, nil
}
