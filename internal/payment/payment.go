package payment

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/learning-platform/internal/core/datamodel/order"
)

const (
	StatusPending = order.StatusPending
	StatusSuccess = order.StatusSuccess
	StatusFailed  = order.StatusFailed

	ReasonAmountMismatch = "Amount mismatch"
	ReasonPaymentFailed  = "Payment failed"
)

// AmountTolerance absorbs rounding between the recorded amount and the gateway-reported one.
var AmountTolerance = decimal.RequireFromString("0.01")

func AmountMatches(expected, claimed decimal.Decimal) bool {
	return claimed.Sub(expected).Abs().LessThanOrEqual(AmountTolerance)
}

// Outcome reports what a reconciliation call did. Transitioned is true only for the one
// caller that committed PENDING to a terminal status; Status is the order status afterwards.
type Outcome struct {
	Transitioned bool
	Status       string
}

type VerifyResult struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func resultFor(gatewayOrderID, status string) *VerifyResult {
	msg := "Payment is still being processed"
	switch status {
	case StatusSuccess:
		msg = "Payment confirmed, your enrollment is now paid"
	case StatusFailed:
		msg = "Payment failed"
	}
	return &VerifyResult{OrderID: gatewayOrderID, Status: status, Message: msg}
}

type InitiatePurchaseInput struct {
	LearnerID int64
	ProgramID int64
}

type PurchaseSession struct {
	GatewayOrderID     string          `json:"order_id"`
	ClientSessionToken string          `json:"payment_session_id"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency"`
}

// OrderSummary is the read model behind the order history endpoint.
type OrderSummary struct {
	GatewayOrderID string          `db:"gateway_order_id" json:"order_id"`
	ProgramID      int64           `db:"program_id" json:"program_id"`
	ProgramTitle   string          `db:"program_title" json:"program_title"`
	Amount         decimal.Decimal `db:"amount" json:"amount"`
	Currency       string          `db:"currency" json:"currency"`
	Status         string          `db:"status" json:"status"`
	PaymentMethod  *string         `db:"payment_method" json:"payment_method,omitempty"`
	FailureReason  *string         `db:"failure_reason" json:"failure_reason,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt    *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
}

// NewOrderRef builds the merchant order id sent to the gateway.
func NewOrderRef(enrollmentID int64) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return "ord_" + strconv.FormatInt(enrollmentID, 10) + "_" + suffix
}
