package program

import (
	"time"

	"github.com/shopspring/decimal"

	programDatamodel "github.com/frahmantamala/learning-platform/internal/core/datamodel/program"
)

type Program struct {
	ID          int64
	Slug        string
	Title       string
	Description string
	Price       decimal.Decimal
	Currency    string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsPurchasable reports whether the program can be bought through the gateway.
func (p *Program) IsPurchasable() bool {
	return p.IsActive && p.Price.IsPositive()
}

func (p *Program) ToResponse() ProgramResponse {
	return ProgramResponse{
		ID:          p.ID,
		Slug:        p.Slug,
		Title:       p.Title,
		Description: p.Description,
		Price:       p.Price.StringFixed(2),
		Currency:    p.Currency,
		Purchasable: p.IsPurchasable(),
	}
}

func FromDataModel(p *programDatamodel.Program) *Program {
	return &Program{
		ID:          p.ID,
		Slug:        p.Slug,
		Title:       p.Title,
		Description: p.Description,
		Price:       p.Price,
		Currency:    p.Currency,
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
