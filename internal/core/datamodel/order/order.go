package order

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	StatusPending = "PENDING"
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// Order is one payment attempt for an enrollment, keyed externally by GatewayOrderID.
type Order struct {
	ID               int64             `gorm:"primaryKey"`
	LearnerID        int64             `gorm:"column:learner_id;not null;index"`
	EnrollmentID     int64             `gorm:"column:enrollment_id;not null;index"`
	ProgramID        int64             `gorm:"column:program_id;not null"`
	GatewayOrderID   string            `gorm:"column:gateway_order_id;not null;uniqueIndex"`
	Amount           decimal.Decimal   `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency         string            `gorm:"column:currency;not null"`
	Status           string            `gorm:"column:status;not null;default:PENDING;index"`
	GatewayPaymentID *string           `gorm:"column:gateway_payment_id"`
	PaymentMethod    *string           `gorm:"column:payment_method"`
	FailureReason    *string           `gorm:"column:failure_reason"`
	Metadata         datatypes.JSONMap `gorm:"column:metadata;type:jsonb"`
	ProcessedAt      *time.Time        `gorm:"column:processed_at"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string {
	return "payment_orders"
}

func (o *Order) IsTerminal() bool {
	return o.Status == StatusSuccess || o.Status == StatusFailed
}
