package program

import (
	"time"

	"github.com/shopspring/decimal"
)

type Program struct {
	ID          int64           `gorm:"primaryKey"`
	Slug        string          `gorm:"column:slug;uniqueIndex;not null"`
	Title       string          `gorm:"column:title;not null"`
	Description string          `gorm:"column:description"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null;default:0"`
	Currency    string          `gorm:"column:currency;not null"`
	IsActive    bool            `gorm:"column:is_active;default:true"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Program) TableName() string {
	return "programs"
}
