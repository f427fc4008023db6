package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

type AttemptStatus string

const (
	AttemptSuccess AttemptStatus = "SUCCESS"
	AttemptFailed  AttemptStatus = "FAILED"
	AttemptPending AttemptStatus = "PENDING"
)

// NormalizeStatus maps a raw gateway status onto the three states the platform acts on.
// Anything other than SUCCESS or FAILED is treated as still pending.
func NormalizeStatus(raw string) AttemptStatus {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(AttemptSuccess):
		return AttemptSuccess
	case string(AttemptFailed):
		return AttemptFailed
	default:
		return AttemptPending
	}
}

type Buyer struct {
	ID    string
	Name  string
	Email string
	Phone string
}

type CreateOrderRequest struct {
	OrderRef    string
	Amount      decimal.Decimal
	Currency    string
	Buyer       Buyer
	ReturnURL   string
	CallbackURL string
}

func (r *CreateOrderRequest) Validate() error {
	if r.OrderRef == "" {
		return errors.New("order ref is required")
	}
	if !r.Amount.IsPositive() {
		return errors.New("amount must be greater than 0")
	}
	if r.Currency == "" {
		return errors.New("currency is required")
	}
	return nil
}

type CreateOrderResult struct {
	GatewayOrderID     string
	GatewayInternalID  string
	ClientSessionToken string
}

type PaymentAttempt struct {
	Status           AttemptStatus
	GatewayPaymentID string
	PaidAmount       decimal.Decimal
	MethodLabel      string
	FailureMessage   string
}

// SelectAttempt picks the attempt that decides an order: any SUCCESS wins,
// then any FAILED. ok is false when every attempt is still pending.
func SelectAttempt(attempts []PaymentAttempt) (PaymentAttempt, bool) {
	var failed *PaymentAttempt
	for i := range attempts {
		switch attempts[i].Status {
		case AttemptSuccess:
			return attempts[i], true
		case AttemptFailed:
			if failed == nil {
				failed = &attempts[i]
			}
		}
	}
	if failed != nil {
		return *failed, true
	}
	return PaymentAttempt{Status: AttemptPending}, false
}

// FlexibleID accepts identifiers the gateway sends either as JSON strings or numbers.
type FlexibleID string

func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = FlexibleID(n.String())
	return nil
}

// Wire formats.

type customerDetails struct {
	CustomerID    string `json:"customer_id"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerEmail string `json:"customer_email,omitempty"`
	CustomerPhone string `json:"customer_phone,omitempty"`
}

type orderMeta struct {
	ReturnURL string `json:"return_url,omitempty"`
	NotifyURL string `json:"notify_url,omitempty"`
}

type createOrderBody struct {
	OrderID         string          `json:"order_id"`
	OrderAmount     float64         `json:"order_amount"`
	OrderCurrency   string          `json:"order_currency"`
	CustomerDetails customerDetails `json:"customer_details"`
	OrderMeta       orderMeta       `json:"order_meta"`
}

type createOrderResponse struct {
	CFOrderID        FlexibleID `json:"cf_order_id"`
	OrderID          string     `json:"order_id"`
	OrderStatus      string     `json:"order_status"`
	PaymentSessionID string     `json:"payment_session_id"`
}

type paymentEntity struct {
	CFPaymentID    FlexibleID      `json:"cf_payment_id"`
	PaymentStatus  string          `json:"payment_status"`
	PaymentAmount  decimal.Decimal `json:"payment_amount"`
	PaymentGroup   string          `json:"payment_group"`
	PaymentMessage string          `json:"payment_message"`
}

func (p paymentEntity) toAttempt() PaymentAttempt {
	return PaymentAttempt{
		Status:           NormalizeStatus(p.PaymentStatus),
		GatewayPaymentID: string(p.CFPaymentID),
		PaidAmount:       p.PaymentAmount,
		MethodLabel:      p.PaymentGroup,
		FailureMessage:   p.PaymentMessage,
	}
}

type errorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Type    string `json:"type"`
}

// CallbackPayload is the body the gateway POSTs to the webhook.
type CallbackPayload struct {
	Type      string       `json:"type"`
	EventTime string       `json:"event_time,omitempty"`
	Data      CallbackData `json:"data"`
}

type CallbackData struct {
	Order   CallbackOrder   `json:"order"`
	Payment CallbackPayment `json:"payment"`
}

type CallbackOrder struct {
	OrderID       string          `json:"order_id"`
	OrderAmount   decimal.Decimal `json:"order_amount"`
	OrderCurrency string          `json:"order_currency"`
}

type CallbackPayment struct {
	CFPaymentID    FlexibleID      `json:"cf_payment_id"`
	PaymentStatus  string          `json:"payment_status"`
	PaymentAmount  decimal.Decimal `json:"payment_amount"`
	PaymentGroup   string          `json:"payment_group"`
	PaymentMessage string          `json:"payment_message"`
}

func (p *CallbackPayload) Attempt() PaymentAttempt {
	return paymentEntity(p.Data.Payment).toAttempt()
}
