package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	paymentpkg "github.com/frahmantamala/learning-platform/internal/payment"
)

// HistoryRepository serves the learner-facing order list straight from SQL.
type HistoryRepository struct {
	db *sqlx.DB
}

func NewHistoryRepository(db *sqlx.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

const listOrdersByLearner = `
SELECT o.gateway_order_id,
       o.program_id,
       COALESCE(p.title, '') AS program_title,
       o.amount,
       o.currency,
       o.status,
       o.payment_method,
       o.failure_reason,
       o.created_at,
       o.processed_at
FROM payment_orders o
LEFT JOIN programs p ON p.id = o.program_id
WHERE o.learner_id = ?
ORDER BY o.created_at DESC, o.id DESC
LIMIT ? OFFSET ?`

func (r *HistoryRepository) ListByLearner(ctx context.Context, learnerID int64, limit, offset int) ([]paymentpkg.OrderSummary, error) {
	rows := make([]paymentpkg.OrderSummary, 0)
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(listOrdersByLearner), learnerID, limit, offset); err != nil {
		return nil, fmt.Errorf("list orders for learner %d: %w", learnerID, err)
	}
	return rows, nil
}
