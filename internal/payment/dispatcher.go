package payment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/frahmantamala/learning-platform/internal/cache"
	"github.com/frahmantamala/learning-platform/internal/core/events"
)

type CacheInvalidator interface {
	Invalidate(ctx context.Context, keys ...string) error
}

type Notifier interface {
	SendPurchaseConfirmation(ctx context.Context, email, name, programName string, amount decimal.Decimal, currency string) error
}

// Dispatcher runs the side effects of a committed payment. Failures are logged only;
// the payment itself is already final.
type Dispatcher struct {
	cache    CacheInvalidator
	notifier Notifier
	learners LearnerReader
	programs ProgramReader
	logger   *slog.Logger
}

func NewDispatcher(invalidator CacheInvalidator, notifier Notifier, learners LearnerReader, programs ProgramReader, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		cache:    invalidator,
		notifier: notifier,
		learners: learners,
		programs: programs,
		logger:   logger,
	}
}

func (d *Dispatcher) HandlePaymentSucceeded(ctx context.Context, event events.Event) error {
	paid, ok := event.(*events.PaymentSucceededEvent)
	if !ok {
		d.logger.Error("invalid event type for payment succeeded handler", "event_type", event.EventType())
		return fmt.Errorf("expected PaymentSucceededEvent, got %T", event)
	}

	log := d.logger.With("event_id", paid.EventID(), "order_id", paid.OrderID, "learner_id", paid.LearnerID)

	// Plain group: one side effect failing must not cancel the other.
	var g errgroup.Group

	g.Go(func() error {
		if err := d.cache.Invalidate(ctx, cache.LearnerKeys(paid.LearnerID)...); err != nil {
			log.Error("learner cache invalidation failed", "error", err)
			return fmt.Errorf("invalidate learner cache: %w", err)
		}
		log.Debug("learner cache invalidated")
		return nil
	})

	g.Go(func() error {
		if err := d.sendConfirmation(ctx, paid); err != nil {
			log.Error("purchase confirmation failed", "error", err)
			return fmt.Errorf("send purchase confirmation: %w", err)
		}
		log.Info("purchase confirmation sent")
		return nil
	})

	return g.Wait()
}

func (d *Dispatcher) sendConfirmation(ctx context.Context, paid *events.PaymentSucceededEvent) error {
	learner, err := d.learners.GetByID(ctx, paid.LearnerID)
	if err != nil {
		return fmt.Errorf("load learner %d: %w", paid.LearnerID, err)
	}
	program, err := d.programs.GetByID(ctx, paid.ProgramID)
	if err != nil {
		return fmt.Errorf("load program %d: %w", paid.ProgramID, err)
	}
	return d.notifier.SendPurchaseConfirmation(ctx, learner.Email, learner.Name, program.Title, paid.Amount, paid.Currency)
}

func (d *Dispatcher) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.Subscribe(events.EventTypePaymentSucceeded, d.HandlePaymentSucceeded)
}
