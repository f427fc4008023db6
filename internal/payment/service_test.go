package payment_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/learning-platform/internal"
	enrollmentDatamodel "github.com/frahmantamala/learning-platform/internal/core/datamodel/enrollment"
	"github.com/frahmantamala/learning-platform/internal/core/datamodel/order"
	programDatamodel "github.com/frahmantamala/learning-platform/internal/core/datamodel/program"
	"github.com/frahmantamala/learning-platform/internal/core/events"
	"github.com/frahmantamala/learning-platform/internal/gateway"
	"github.com/frahmantamala/learning-platform/internal/payment"
)

var _ = Describe("Service", func() {
	var (
		ctx       context.Context
		f         *fixture
		gw        *fakeGateway
		publisher *recordingPublisher
		service   *payment.Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		f = newFixture("999.00")
		gw = newFakeGateway()
		publisher = &recordingPublisher{}
		service = newService(f, gw, publisher)
	})

	countOrders := func(status string) int64 {
		var n int64
		Expect(f.db.Model(&order.Order{}).Where("enrollment_id = ? AND status = ?", f.enrollment.ID, status).Count(&n).Error).To(Succeed())
		return n
	}

	Describe("InitiatePurchase", func() {
		input := func() payment.InitiatePurchaseInput {
			return payment.InitiatePurchaseInput{LearnerID: f.learner.ID, ProgramID: f.program.ID}
		}

		It("should open a gateway order and record it as PENDING", func() {
			// When
			session, err := service.InitiatePurchase(ctx, input())

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(session.ClientSessionToken).To(Equal("session_" + session.GatewayOrderID))
			Expect(session.Amount.Equal(decimal.RequireFromString("999"))).To(BeTrue())
			Expect(session.Currency).To(Equal("INR"))

			Expect(gw.created).To(HaveLen(1))
			req := gw.created[0]
			Expect(req.Buyer.Email).To(Equal("asha@example.com"))
			Expect(req.CallbackURL).To(Equal("https://api.example.com/api/v1/payments/webhook"))

			stored, err := f.repo.GetByGatewayOrderID(ctx, session.GatewayOrderID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Status).To(Equal(payment.StatusPending))
			Expect(stored.EnrollmentID).To(Equal(f.enrollment.ID))
			Expect(stored.Metadata["program_title"]).To(Equal("Go Backend"))
		})

		It("should replace an earlier PENDING attempt for the same enrollment", func() {
			first, err := service.InitiatePurchase(ctx, input())
			Expect(err).NotTo(HaveOccurred())
			second, err := service.InitiatePurchase(ctx, input())
			Expect(err).NotTo(HaveOccurred())

			Expect(first.GatewayOrderID).NotTo(Equal(second.GatewayOrderID))
			Expect(countOrders(payment.StatusPending)).To(Equal(int64(1)))

			_, err = f.repo.GetByGatewayOrderID(ctx, first.GatewayOrderID)
			Expect(errors.Is(err, internal.ErrOrderNotFound)).To(BeTrue())
		})

		It("should keep terminal orders when a new attempt starts", func() {
			failed := f.pendingOrder("ord_old_failed", "999.00")
			_, err := payment.NewReconciler(f.repo, publisher, quietLogger()).ReconcileFailure(ctx, failed, "declined")
			Expect(err).NotTo(HaveOccurred())

			_, err = service.InitiatePurchase(ctx, input())
			Expect(err).NotTo(HaveOccurred())

			Expect(countOrders(payment.StatusFailed)).To(Equal(int64(1)))
			Expect(countOrders(payment.StatusPending)).To(Equal(int64(1)))
		})

		It("should reject learners without an enrollment", func() {
			_, err := service.InitiatePurchase(ctx, payment.InitiatePurchaseInput{LearnerID: f.learner.ID, ProgramID: 9999})
			Expect(errors.Is(err, internal.ErrEnrollmentNotFound)).To(BeTrue())
		})

		It("should reject already entitled learners", func() {
			Expect(f.db.Model(&enrollmentDatamodel.Enrollment{}).Where("id = ?", f.enrollment.ID).
				Update("type", enrollmentDatamodel.TypePaid).Error).To(Succeed())

			_, err := service.InitiatePurchase(ctx, input())

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(409))
			Expect(gw.created).To(BeEmpty())
		})

		It("should reject programs without a price", func() {
			Expect(f.db.Model(&programDatamodel.Program{}).Where("id = ?", f.program.ID).
				Update("price", decimal.Zero).Error).To(Succeed())

			_, err := service.InitiatePurchase(ctx, input())

			Expect(errors.Is(err, internal.ErrNoPrice)).To(BeTrue())
			Expect(gw.created).To(BeEmpty())
		})

		It("should surface gateway outages as retryable and record nothing", func() {
			gw.createErr = gateway.ErrGatewayUnavailable

			_, err := service.InitiatePurchase(ctx, input())

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(503))
			Expect(errors.Is(err, gateway.ErrGatewayUnavailable)).To(BeTrue())
			Expect(countOrders(payment.StatusPending)).To(BeZero())
		})
	})

	Describe("Verify", func() {
		var o *order.Order

		BeforeEach(func() {
			o = f.pendingOrder("ord_verify", "999.00")
		})

		It("should reject unknown orders", func() {
			_, err := service.Verify(ctx, "ord_missing", f.learner.ID)
			Expect(errors.Is(err, internal.ErrOrderNotFound)).To(BeTrue())
		})

		It("should reject another learner's order", func() {
			_, err := service.Verify(ctx, o.GatewayOrderID, f.learner.ID+1)
			Expect(errors.Is(err, internal.ErrOrderForbidden)).To(BeTrue())
			Expect(gw.queryCount()).To(BeZero())
		})

		It("should report PENDING without writing while the gateway has no decision", func() {
			// Given
			before := f.reloadOrder(o.ID)

			// When
			result, err := service.Verify(ctx, o.GatewayOrderID, f.learner.ID)

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Status).To(Equal(payment.StatusPending))
			after := f.reloadOrder(o.ID)
			Expect(after.Status).To(Equal(payment.StatusPending))
			Expect(after.UpdatedAt).To(Equal(before.UpdatedAt))
			Expect(f.reloadEnrollment().Type).To(Equal(enrollmentDatamodel.TypeFree))
		})

		It("should reconcile a successful attempt", func() {
			gw.attempts[o.GatewayOrderID] = []gateway.PaymentAttempt{
				{Status: gateway.AttemptFailed, GatewayPaymentID: "cf_1", FailureMessage: "declined"},
				{Status: gateway.AttemptSuccess, GatewayPaymentID: "cf_2", PaidAmount: decimal.RequireFromString("999.00"), MethodLabel: "upi"},
			}

			result, err := service.Verify(ctx, o.GatewayOrderID, f.learner.ID)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Status).To(Equal(payment.StatusSuccess))
			Expect(*f.reloadOrder(o.ID).GatewayPaymentID).To(Equal("cf_2"))
			Expect(f.reloadEnrollment().Type).To(Equal(enrollmentDatamodel.TypePaid))
			Expect(publisher.ofType(events.EventTypePaymentSucceeded)).To(HaveLen(1))
		})

		It("should answer from storage once the order is paid", func() {
			gw.attempts[o.GatewayOrderID] = []gateway.PaymentAttempt{
				{Status: gateway.AttemptSuccess, GatewayPaymentID: "cf_2", PaidAmount: decimal.RequireFromString("999.00")},
			}
			_, err := service.Verify(ctx, o.GatewayOrderID, f.learner.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(gw.queryCount()).To(Equal(1))

			result, err := service.Verify(ctx, o.GatewayOrderID, f.learner.ID)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Status).To(Equal(payment.StatusSuccess))
			Expect(gw.queryCount()).To(Equal(1))
		})

		It("should mark the order failed when only failures are reported", func() {
			gw.attempts[o.GatewayOrderID] = []gateway.PaymentAttempt{
				{Status: gateway.AttemptFailed, GatewayPaymentID: "cf_1", FailureMessage: "insufficient funds"},
			}

			result, err := service.Verify(ctx, o.GatewayOrderID, f.learner.ID)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Status).To(Equal(payment.StatusFailed))
			Expect(*f.reloadOrder(o.ID).FailureReason).To(Equal("insufficient funds"))
		})

		It("should report FAILED when the paid amount does not match", func() {
			gw.attempts[o.GatewayOrderID] = []gateway.PaymentAttempt{
				{Status: gateway.AttemptSuccess, GatewayPaymentID: "cf_3", PaidAmount: decimal.RequireFromString("1.00")},
			}

			result, err := service.Verify(ctx, o.GatewayOrderID, f.learner.ID)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Status).To(Equal(payment.StatusFailed))
			Expect(f.reloadEnrollment().Type).To(Equal(enrollmentDatamodel.TypeFree))
		})

		It("should surface gateway outages as retryable", func() {
			gw.queryErr = gateway.ErrGatewayUnavailable

			_, err := service.Verify(ctx, o.GatewayOrderID, f.learner.ID)

			Expect(errors.Is(err, internal.ErrGatewayUnavailable)).To(BeTrue())
			Expect(f.reloadOrder(o.ID).Status).To(Equal(payment.StatusPending))
		})
	})

	Describe("ProcessCallback", func() {
		callback := func(orderID, status, amount string) *gateway.CallbackPayload {
			return &gateway.CallbackPayload{
				Type: "PAYMENT_WEBHOOK",
				Data: gateway.CallbackData{
					Order: gateway.CallbackOrder{OrderID: orderID, OrderAmount: decimal.RequireFromString(amount), OrderCurrency: "INR"},
					Payment: gateway.CallbackPayment{
						CFPaymentID:   "cf_cb_1",
						PaymentStatus: status,
						PaymentAmount: decimal.RequireFromString(amount),
						PaymentGroup:  "upi",
					},
				},
			}
		}

		It("should ignore unknown orders", func() {
			Expect(service.ProcessCallback(ctx, callback("ord_unknown", "SUCCESS", "999.00"))).To(Succeed())
			Expect(publisher.events).To(BeEmpty())
		})

		It("should ignore non-terminal statuses", func() {
			o := f.pendingOrder("ord_cb_pending", "999.00")

			Expect(service.ProcessCallback(ctx, callback(o.GatewayOrderID, "USER_DROPPED", "999.00"))).To(Succeed())

			Expect(f.reloadOrder(o.ID).Status).To(Equal(payment.StatusPending))
		})

		It("should apply a success once even when delivered twice", func() {
			o := f.pendingOrder("ord_cb_dup", "999.00")

			Expect(service.ProcessCallback(ctx, callback(o.GatewayOrderID, "SUCCESS", "999.00"))).To(Succeed())
			Expect(service.ProcessCallback(ctx, callback(o.GatewayOrderID, "SUCCESS", "999.00"))).To(Succeed())

			Expect(f.reloadOrder(o.ID).Status).To(Equal(payment.StatusSuccess))
			Expect(publisher.ofType(events.EventTypePaymentSucceeded)).To(HaveLen(1))
		})

		It("should converge with a poll that lands first", func() {
			o := f.pendingOrder("ord_cb_poll", "999.00")
			gw.attempts[o.GatewayOrderID] = []gateway.PaymentAttempt{
				{Status: gateway.AttemptSuccess, GatewayPaymentID: "cf_cb_1", PaidAmount: decimal.RequireFromString("999.00")},
			}

			result, err := service.Verify(ctx, o.GatewayOrderID, f.learner.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Status).To(Equal(payment.StatusSuccess))

			Expect(service.ProcessCallback(ctx, callback(o.GatewayOrderID, "SUCCESS", "999.00"))).To(Succeed())

			Expect(publisher.ofType(events.EventTypePaymentSucceeded)).To(HaveLen(1))
		})

		It("should fail the order on a FAILED callback", func() {
			o := f.pendingOrder("ord_cb_failed", "999.00")
			payload := callback(o.GatewayOrderID, "FAILED", "999.00")
			payload.Data.Payment.PaymentMessage = "bank declined"

			Expect(service.ProcessCallback(ctx, payload)).To(Succeed())

			stored := f.reloadOrder(o.ID)
			Expect(stored.Status).To(Equal(payment.StatusFailed))
			Expect(*stored.FailureReason).To(Equal("bank declined"))
		})
	})

	Describe("PendingOrders", func() {
		It("should only return orders older than the minimum age", func() {
			// Given
			f.pendingOrder("ord_fresh", "999.00")

			stale := &order.Order{
				LearnerID:      f.learner.ID,
				EnrollmentID:   f.enrollment.ID + 100,
				ProgramID:      f.program.ID,
				GatewayOrderID: "ord_stale",
				Amount:         decimal.RequireFromString("999.00"),
				Currency:       "INR",
			}
			Expect(f.repo.CreatePending(ctx, stale)).To(Succeed())
			Expect(f.db.Model(&order.Order{}).Where("id = ?", stale.ID).
				Update("created_at", time.Now().UTC().Add(-2*time.Hour)).Error).To(Succeed())

			// When
			orders, err := service.PendingOrders(ctx, time.Hour, 48*time.Hour, 10)

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(orders).To(HaveLen(1))
			Expect(orders[0].GatewayOrderID).To(Equal("ord_stale"))
		})
	})
})
