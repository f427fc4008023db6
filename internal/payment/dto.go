package payment

import (
	errors "github.com/frahmantamala/learning-platform/internal"
	"github.com/frahmantamala/learning-platform/internal/core/common/validation"
)

type InitiatePurchaseRequest struct {
	ProgramID int64 `json:"program_id"`
}

func (r *InitiatePurchaseRequest) Validate() *errors.AppError {
	return validation.ValidateProgramID(r.ProgramID)
}

type VerifyPaymentRequest struct {
	OrderID string `json:"order_id"`
}

func (r *VerifyPaymentRequest) Validate() *errors.AppError {
	return validation.ValidateGatewayOrderID(r.OrderID)
}

type OrderListResponse struct {
	Orders []OrderSummary `json:"orders"`
	Limit  int64          `json:"limit"`
	Offset int64          `json:"offset"`
}

type CallbackAck struct {
	Status string `json:"status"`
}
