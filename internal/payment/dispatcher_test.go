package payment_test

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/learning-platform/internal/cache"
	"github.com/frahmantamala/learning-platform/internal/core/events"
	"github.com/frahmantamala/learning-platform/internal/payment"
)

type fakeInvalidator struct {
	mu   sync.Mutex
	err  error
	keys []string
}

func (c *fakeInvalidator) Invalidate(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys = append(c.keys, keys...)
	return c.err
}

type sentConfirmation struct {
	email, name, program, currency string
	amount                         decimal.Decimal
}

type fakeNotifier struct {
	mu   sync.Mutex
	err  error
	sent []sentConfirmation
}

func (n *fakeNotifier) SendPurchaseConfirmation(_ context.Context, email, name, programName string, amount decimal.Decimal, currency string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentConfirmation{email: email, name: name, program: programName, currency: currency, amount: amount})
	return nil
}

var _ = Describe("Dispatcher", func() {
	var (
		ctx         context.Context
		f           *fixture
		invalidator *fakeInvalidator
		notifier    *fakeNotifier
		dispatcher  *payment.Dispatcher
		event       *events.PaymentSucceededEvent
	)

	BeforeEach(func() {
		ctx = context.Background()
		f = newFixture("999.00")
		invalidator = &fakeInvalidator{}
		notifier = &fakeNotifier{}
		dispatcher = payment.NewDispatcher(invalidator, notifier, f.learners, f.programs, quietLogger())
		event = events.NewPaymentSucceededEvent(1, "ord_1", f.learner.ID, f.program.ID, f.enrollment.ID,
			decimal.RequireFromString("999.00"), "INR", "cf_1")
	})

	It("should invalidate the learner's cached views and send a confirmation", func() {
		Expect(dispatcher.HandlePaymentSucceeded(ctx, event)).To(Succeed())

		Expect(invalidator.keys).To(ConsistOf(cache.LearnerKeys(f.learner.ID)))
		Expect(notifier.sent).To(HaveLen(1))
		Expect(notifier.sent[0].email).To(Equal("asha@example.com"))
		Expect(notifier.sent[0].program).To(Equal("Go Backend"))
		Expect(notifier.sent[0].amount.StringFixed(2)).To(Equal("999.00"))
	})

	It("should still notify when cache invalidation fails", func() {
		invalidator.err = errors.New("redis down")

		err := dispatcher.HandlePaymentSucceeded(ctx, event)

		Expect(err).To(HaveOccurred())
		Expect(notifier.sent).To(HaveLen(1))
	})

	It("should still invalidate when the notification fails", func() {
		notifier.err = errors.New("broker down")

		err := dispatcher.HandlePaymentSucceeded(ctx, event)

		Expect(err).To(HaveOccurred())
		Expect(invalidator.keys).To(HaveLen(3))
	})

	It("should reject other event types", func() {
		failed := events.NewPaymentFailedEvent(1, "ord_1", f.learner.ID, "declined")

		Expect(dispatcher.HandlePaymentSucceeded(ctx, failed)).NotTo(Succeed())
		Expect(invalidator.keys).To(BeEmpty())
	})

	It("should run through the event bus after a reconciled payment", func() {
		// Given
		bus := events.NewEventBus(quietLogger())
		dispatcher.RegisterEventHandlers(bus)
		reconciler := payment.NewReconciler(f.repo, bus, quietLogger())
		o := f.pendingOrder("ord_bus", "999.00")

		// When
		outcome, err := reconciler.ReconcileSuccess(ctx, o, decimal.RequireFromString("999.00"), "cf_bus", "card")
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome.Transitioned).To(BeTrue())
		Expect(bus.Wait(ctx)).To(Succeed())

		// Then
		Expect(notifier.sent).To(HaveLen(1))
		Expect(invalidator.keys).To(HaveLen(3))
	})
})
