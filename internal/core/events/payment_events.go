package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventTypePaymentSucceeded      = "payment.succeeded"
	EventTypePaymentFailed         = "payment.failed"
	EventTypePaymentAmountMismatch = "payment.amount_mismatch"
)

func newBase(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// PaymentSucceededEvent is published once per order, by the caller that committed the transition.
type PaymentSucceededEvent struct {
	BaseEvent
	OrderID          int64           `json:"order_id"`
	GatewayOrderID   string          `json:"gateway_order_id"`
	LearnerID        int64           `json:"learner_id"`
	ProgramID        int64           `json:"program_id"`
	EnrollmentID     int64           `json:"enrollment_id"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	GatewayPaymentID string          `json:"gateway_payment_id"`
}

func NewPaymentSucceededEvent(orderID int64, gatewayOrderID string, learnerID, programID, enrollmentID int64, amount decimal.Decimal, currency, gatewayPaymentID string) *PaymentSucceededEvent {
	return &PaymentSucceededEvent{
		BaseEvent: newBase(EventTypePaymentSucceeded, map[string]interface{}{
			"order_id":           orderID,
			"gateway_order_id":   gatewayOrderID,
			"learner_id":         learnerID,
			"program_id":         programID,
			"enrollment_id":      enrollmentID,
			"amount":             amount.StringFixed(2),
			"currency":           currency,
			"gateway_payment_id": gatewayPaymentID,
		}),
		OrderID:          orderID,
		GatewayOrderID:   gatewayOrderID,
		LearnerID:        learnerID,
		ProgramID:        programID,
		EnrollmentID:     enrollmentID,
		Amount:           amount,
		Currency:         currency,
		GatewayPaymentID: gatewayPaymentID,
	}
}

type PaymentFailedEvent struct {
	BaseEvent
	OrderID        int64  `json:"order_id"`
	GatewayOrderID string `json:"gateway_order_id"`
	LearnerID      int64  `json:"learner_id"`
	FailureReason  string `json:"failure_reason"`
}

func NewPaymentFailedEvent(orderID int64, gatewayOrderID string, learnerID int64, failureReason string) *PaymentFailedEvent {
	return &PaymentFailedEvent{
		BaseEvent: newBase(EventTypePaymentFailed, map[string]interface{}{
			"order_id":         orderID,
			"gateway_order_id": gatewayOrderID,
			"learner_id":       learnerID,
			"failure_reason":   failureReason,
		}),
		OrderID:        orderID,
		GatewayOrderID: gatewayOrderID,
		LearnerID:      learnerID,
		FailureReason:  failureReason,
	}
}

// AmountMismatchEvent signals a gateway-confirmed amount that differs from the recorded order amount.
type AmountMismatchEvent struct {
	BaseEvent
	OrderID        int64           `json:"order_id"`
	GatewayOrderID string          `json:"gateway_order_id"`
	LearnerID      int64           `json:"learner_id"`
	Expected       decimal.Decimal `json:"expected"`
	Claimed        decimal.Decimal `json:"claimed"`
	Currency       string          `json:"currency"`
}

func NewAmountMismatchEvent(orderID int64, gatewayOrderID string, learnerID int64, expected, claimed decimal.Decimal, currency string) *AmountMismatchEvent {
	return &AmountMismatchEvent{
		BaseEvent: newBase(EventTypePaymentAmountMismatch, map[string]interface{}{
			"order_id":         orderID,
			"gateway_order_id": gatewayOrderID,
			"learner_id":       learnerID,
			"expected":         expected.StringFixed(2),
			"claimed":          claimed.StringFixed(2),
			"currency":         currency,
		}),
		OrderID:        orderID,
		GatewayOrderID: gatewayOrderID,
		LearnerID:      learnerID,
		Expected:       expected,
		Claimed:        claimed,
		Currency:       currency,
	}
}
