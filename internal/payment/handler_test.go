package payment_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/learning-platform/internal"
	"github.com/frahmantamala/learning-platform/internal/gateway"
	"github.com/frahmantamala/learning-platform/internal/payment"
	"github.com/frahmantamala/learning-platform/internal/transport"
)

type stubService struct {
	initiateIn  payment.InitiatePurchaseInput
	initiateErr error
	verifyErr   error
	verifyArgs  []interface{}
	limit       int
	offset      int
}

func (s *stubService) InitiatePurchase(_ context.Context, in payment.InitiatePurchaseInput) (*payment.PurchaseSession, error) {
	s.initiateIn = in
	if s.initiateErr != nil {
		return nil, s.initiateErr
	}
	return &payment.PurchaseSession{
		GatewayOrderID:     "ord_7_abc",
		ClientSessionToken: "session_abc",
		Amount:             decimal.RequireFromString("999.00"),
		Currency:           "INR",
	}, nil
}

func (s *stubService) Verify(_ context.Context, gatewayOrderID string, learnerID int64) (*payment.VerifyResult, error) {
	s.verifyArgs = []interface{}{gatewayOrderID, learnerID}
	if s.verifyErr != nil {
		return nil, s.verifyErr
	}
	return &payment.VerifyResult{OrderID: gatewayOrderID, Status: payment.StatusSuccess}, nil
}

func (s *stubService) ListOrders(_ context.Context, _ int64, limit, offset int) ([]payment.OrderSummary, error) {
	s.limit, s.offset = limit, offset
	return []payment.OrderSummary{{GatewayOrderID: "ord_7_abc", Status: payment.StatusPending}}, nil
}

func (s *stubService) ProcessCallback(context.Context, *gateway.CallbackPayload) error {
	return nil
}

var _ = Describe("Handler", func() {
	var (
		svc     *stubService
		handler *payment.Handler
		caller  internal.Learner
	)

	BeforeEach(func() {
		svc = &stubService{}
		logger := quietLogger()
		handler = payment.NewHandler(transport.NewBaseHandler(logger), svc, logger)
		caller = internal.Learner{ID: 42, Email: "asha@example.com"}
	})

	request := func(method, target, body string, authenticated bool) *http.Request {
		req := httptest.NewRequest(method, target, strings.NewReader(body))
		if authenticated {
			req = req.WithContext(internal.ContextWithLearner(req.Context(), caller))
		}
		return req
	}

	Describe("InitiatePurchase", func() {
		It("should return the checkout session", func() {
			rec := httptest.NewRecorder()
			handler.InitiatePurchase(rec, request(http.MethodPost, "/api/v1/payments/orders", `{"program_id": 3}`, true))

			Expect(rec.Code).To(Equal(http.StatusCreated))
			Expect(svc.initiateIn).To(Equal(payment.InitiatePurchaseInput{LearnerID: 42, ProgramID: 3}))

			var body map[string]interface{}
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			Expect(body["order_id"]).To(Equal("ord_7_abc"))
			Expect(body["payment_session_id"]).To(Equal("session_abc"))
		})

		It("should require an authenticated learner", func() {
			rec := httptest.NewRecorder()
			handler.InitiatePurchase(rec, request(http.MethodPost, "/api/v1/payments/orders", `{"program_id": 3}`, false))

			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})

		It("should reject a missing program id", func() {
			rec := httptest.NewRecorder()
			handler.InitiatePurchase(rec, request(http.MethodPost, "/api/v1/payments/orders", `{}`, true))

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("should reject malformed JSON", func() {
			rec := httptest.NewRecorder()
			handler.InitiatePurchase(rec, request(http.MethodPost, "/api/v1/payments/orders", `{"program_id":`, true))

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("should map service errors to their status", func() {
			svc.initiateErr = internal.ErrAlreadyEntitled

			rec := httptest.NewRecorder()
			handler.InitiatePurchase(rec, request(http.MethodPost, "/api/v1/payments/orders", `{"program_id": 3}`, true))

			Expect(rec.Code).To(Equal(http.StatusConflict))
		})

		It("should report gateway outages as 503", func() {
			svc.initiateErr = internal.ErrGatewayUnavailable

			rec := httptest.NewRecorder()
			handler.InitiatePurchase(rec, request(http.MethodPost, "/api/v1/payments/orders", `{"program_id": 3}`, true))

			Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
		})
	})

	Describe("VerifyPayment", func() {
		It("should verify on behalf of the caller", func() {
			rec := httptest.NewRecorder()
			handler.VerifyPayment(rec, request(http.MethodPost, "/api/v1/payments/verify", `{"order_id":"ord_7_abc"}`, true))

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(svc.verifyArgs).To(Equal([]interface{}{"ord_7_abc", int64(42)}))
		})

		It("should reject order ids with unexpected characters", func() {
			rec := httptest.NewRecorder()
			handler.VerifyPayment(rec, request(http.MethodPost, "/api/v1/payments/verify", `{"order_id":"ord 7; drop"}`, true))

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(svc.verifyArgs).To(BeNil())
		})

		It("should return 403 for another learner's order", func() {
			svc.verifyErr = internal.ErrOrderForbidden

			rec := httptest.NewRecorder()
			handler.VerifyPayment(rec, request(http.MethodPost, "/api/v1/payments/verify", `{"order_id":"ord_7_abc"}`, true))

			Expect(rec.Code).To(Equal(http.StatusForbidden))
		})

		It("should return 404 for unknown orders", func() {
			svc.verifyErr = internal.ErrOrderNotFound

			rec := httptest.NewRecorder()
			handler.VerifyPayment(rec, request(http.MethodPost, "/api/v1/payments/verify", `{"order_id":"ord_7_abc"}`, true))

			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("ListOrders", func() {
		It("should apply default pagination", func() {
			rec := httptest.NewRecorder()
			handler.ListOrders(rec, request(http.MethodGet, "/api/v1/payments/orders", "", true))

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(svc.limit).To(Equal(20))
			Expect(svc.offset).To(Equal(0))
		})

		It("should reject out of range limits", func() {
			rec := httptest.NewRecorder()
			handler.ListOrders(rec, request(http.MethodGet, "/api/v1/payments/orders?limit=500", "", true))

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})
})
