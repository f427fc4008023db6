package payment_test

import (
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	enrollmentDatamodel "github.com/frahmantamala/learning-platform/internal/core/datamodel/enrollment"
	"github.com/frahmantamala/learning-platform/internal/core/events"
	"github.com/frahmantamala/learning-platform/internal/gateway"
	"github.com/frahmantamala/learning-platform/internal/payment"
	"github.com/frahmantamala/learning-platform/internal/transport"
)

const webhookSecret = "whsec_test_secret"

var _ = Describe("WebhookHandler", func() {
	var (
		f         *fixture
		publisher *recordingPublisher
		handler   *payment.WebhookHandler
	)

	BeforeEach(func() {
		f = newFixture("999.00")
		publisher = &recordingPublisher{}
		service := newService(f, newFakeGateway(), publisher)
		logger := quietLogger()
		verifier := gateway.NewSignatureVerifier(webhookSecret, false, logger)
		handler = payment.NewWebhookHandler(transport.NewBaseHandler(logger), service, verifier, logger)
	})

	callbackBody := func(orderID, status, amount string) string {
		return `{"type":"PAYMENT_SUCCESS_WEBHOOK","event_time":"2026-10-19T10:00:00+05:30","data":{` +
			`"order":{"order_id":"` + orderID + `","order_amount":` + amount + `,"order_currency":"INR"},` +
			`"payment":{"cf_payment_id":5114910123,"payment_status":"` + status + `","payment_amount":` + amount + `,"payment_group":"upi"}}}`
	}

	send := func(body, timestamp, signature string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if timestamp != "" {
			req.Header.Set(payment.HeaderWebhookTimestamp, timestamp)
		}
		if signature != "" {
			req.Header.Set(payment.HeaderWebhookSignature, signature)
		}
		rec := httptest.NewRecorder()
		handler.HandleCallback(rec, req)
		return rec
	}

	sendSigned := func(body string) *httptest.ResponseRecorder {
		ts := "1760868000"
		return send(body, ts, gateway.Sign(webhookSecret, ts, []byte(body)))
	}

	It("should upgrade the enrollment on a signed success callback", func() {
		// Given
		o := f.pendingOrder("ord_wh_1", "999.00")

		// When
		rec := sendSigned(callbackBody(o.GatewayOrderID, "SUCCESS", "999.00"))

		// Then
		Expect(rec.Code).To(Equal(http.StatusOK))
		stored := f.reloadOrder(o.ID)
		Expect(stored.Status).To(Equal(payment.StatusSuccess))
		Expect(*stored.GatewayPaymentID).To(Equal("5114910123"))
		Expect(f.reloadEnrollment().Type).To(Equal(enrollmentDatamodel.TypePaid))
	})

	It("should apply a duplicated callback only once", func() {
		o := f.pendingOrder("ord_wh_dup", "999.00")
		body := callbackBody(o.GatewayOrderID, "SUCCESS", "999.00")

		Expect(sendSigned(body).Code).To(Equal(http.StatusOK))
		Expect(sendSigned(body).Code).To(Equal(http.StatusOK))

		Expect(publisher.ofType(events.EventTypePaymentSucceeded)).To(HaveLen(1))
	})

	It("should reject callbacks without signature headers", func() {
		o := f.pendingOrder("ord_wh_nohdr", "999.00")

		rec := send(callbackBody(o.GatewayOrderID, "SUCCESS", "999.00"), "", "")

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(f.reloadOrder(o.ID).Status).To(Equal(payment.StatusPending))
	})

	It("should reject callbacks with a forged signature", func() {
		o := f.pendingOrder("ord_wh_forged", "999.00")
		body := callbackBody(o.GatewayOrderID, "SUCCESS", "999.00")

		rec := send(body, "1760868000", gateway.Sign("wrong-secret", "1760868000", []byte(body)))

		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		Expect(f.reloadOrder(o.ID).Status).To(Equal(payment.StatusPending))
		Expect(publisher.events).To(BeEmpty())
	})

	It("should reject a valid signature replayed onto a different body", func() {
		o := f.pendingOrder("ord_wh_tamper", "999.00")
		signed := callbackBody(o.GatewayOrderID, "FAILED", "999.00")
		tampered := callbackBody(o.GatewayOrderID, "SUCCESS", "999.00")

		rec := send(tampered, "1760868000", gateway.Sign(webhookSecret, "1760868000", []byte(signed)))

		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})

	It("should acknowledge malformed bodies without changing anything", func() {
		rec := sendSigned(`{"type":`)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(publisher.events).To(BeEmpty())
	})

	It("should acknowledge callbacks for unknown orders", func() {
		rec := sendSigned(callbackBody("ord_nobody", "SUCCESS", "999.00"))

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(publisher.events).To(BeEmpty())
	})

	It("should acknowledge non-terminal statuses and keep the order pending", func() {
		o := f.pendingOrder("ord_wh_user_dropped", "999.00")

		rec := sendSigned(callbackBody(o.GatewayOrderID, "USER_DROPPED", "999.00"))

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(f.reloadOrder(o.ID).Status).To(Equal(payment.StatusPending))
	})

	It("should fail the order when the callback amount does not match", func() {
		o := f.pendingOrder("ord_wh_mismatch", "500.00")

		rec := sendSigned(callbackBody(o.GatewayOrderID, "SUCCESS", "450.00"))

		Expect(rec.Code).To(Equal(http.StatusOK))
		stored := f.reloadOrder(o.ID)
		Expect(stored.Status).To(Equal(payment.StatusFailed))
		Expect(*stored.FailureReason).To(Equal(payment.ReasonAmountMismatch))
		Expect(publisher.ofType(events.EventTypePaymentAmountMismatch)).To(HaveLen(1))
		Expect(f.reloadEnrollment().Type).To(Equal(enrollmentDatamodel.TypeFree))
	})

	Context("when the webhook secret is not configured", func() {
		It("should reject callbacks unless unsigned delivery is allowed", func() {
			o := f.pendingOrder("ord_wh_nosecret", "999.00")
			body := callbackBody(o.GatewayOrderID, "SUCCESS", "999.00")
			logger := quietLogger()
			service := newService(f, newFakeGateway(), publisher)

			strict := payment.NewWebhookHandler(transport.NewBaseHandler(logger), service, gateway.NewSignatureVerifier("", false, logger), logger)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", strings.NewReader(body))
			req.Header.Set(payment.HeaderWebhookTimestamp, "1")
			req.Header.Set(payment.HeaderWebhookSignature, "anything")
			rec := httptest.NewRecorder()
			strict.HandleCallback(rec, req)
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))

			lenient := payment.NewWebhookHandler(transport.NewBaseHandler(logger), service, gateway.NewSignatureVerifier("", true, logger), logger)
			req = httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", strings.NewReader(body))
			req.Header.Set(payment.HeaderWebhookTimestamp, "1")
			req.Header.Set(payment.HeaderWebhookSignature, "anything")
			rec = httptest.NewRecorder()
			lenient.HandleCallback(rec, req)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(f.reloadOrder(o.ID).Status).To(Equal(payment.StatusSuccess))
		})
	})
})
