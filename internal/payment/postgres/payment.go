package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/frahmantamala/learning-platform/internal"
	"github.com/frahmantamala/learning-platform/internal/core/datamodel/enrollment"
	"github.com/frahmantamala/learning-platform/internal/core/datamodel/order"
	paymentpkg "github.com/frahmantamala/learning-platform/internal/payment"
)

// PaymentRepository is the order ledger. It is also the only writer of paid enrollments.
type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{
		db: db,
	}
}

var _ paymentpkg.RepositoryAPI = (*PaymentRepository)(nil)

// CreatePending drops any open attempt for the enrollment and records the new one.
// Terminal orders are left alone.
func (r *PaymentRepository) CreatePending(ctx context.Context, o *order.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("enrollment_id = ? AND status = ?", o.EnrollmentID, order.StatusPending).
			Delete(&order.Order{}).Error
		if err != nil {
			return fmt.Errorf("delete pending orders for enrollment %d: %w", o.EnrollmentID, err)
		}

		o.Status = order.StatusPending
		if err := tx.Create(o).Error; err != nil {
			return fmt.Errorf("insert order %s: %w", o.GatewayOrderID, err)
		}
		return nil
	})
}

func (r *PaymentRepository) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*order.Order, error) {
	var o order.Order
	err := r.db.WithContext(ctx).Where("gateway_order_id = ?", gatewayOrderID).First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrOrderNotFound
		}
		return nil, err
	}
	return &o, nil
}

// CompleteSuccess re-reads the order under a row lock and, if it is still PENDING, marks it
// SUCCESS and upgrades the enrollment to PAID in the same transaction.
func (r *PaymentRepository) CompleteSuccess(ctx context.Context, orderID int64, gatewayPaymentID, methodLabel string, paidAt time.Time) (paymentpkg.Outcome, error) {
	var outcome paymentpkg.Outcome

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current order.Order
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&current, orderID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return internal.ErrOrderNotFound
			}
			return fmt.Errorf("lock order %d: %w", orderID, err)
		}

		if current.Status != order.StatusPending {
			outcome = paymentpkg.Outcome{Status: current.Status}
			return nil
		}

		res := tx.Model(&order.Order{}).
			Where("id = ? AND status = ?", orderID, order.StatusPending).
			Updates(map[string]interface{}{
				"status":             order.StatusSuccess,
				"gateway_payment_id": nullable(gatewayPaymentID),
				"payment_method":     nullable(methodLabel),
				"processed_at":       paidAt,
			})
		if res.Error != nil {
			return fmt.Errorf("mark order %d success: %w", orderID, res.Error)
		}
		if res.RowsAffected == 0 {
			status, err := statusOf(tx, orderID)
			if err != nil {
				return err
			}
			outcome = paymentpkg.Outcome{Status: status}
			return nil
		}

		if err := markEnrollmentPaid(tx, current.EnrollmentID, paidAt); err != nil {
			return err
		}

		outcome = paymentpkg.Outcome{Transitioned: true, Status: order.StatusSuccess}
		return nil
	})
	if err != nil {
		return paymentpkg.Outcome{}, err
	}
	return outcome, nil
}

// MarkFailed moves a PENDING order to FAILED. Orders that already reached a terminal
// status are not modified.
func (r *PaymentRepository) MarkFailed(ctx context.Context, orderID int64, reason string, failedAt time.Time) (paymentpkg.Outcome, error) {
	db := r.db.WithContext(ctx)

	res := db.Model(&order.Order{}).
		Where("id = ? AND status = ?", orderID, order.StatusPending).
		Updates(map[string]interface{}{
			"status":         order.StatusFailed,
			"failure_reason": reason,
			"processed_at":   failedAt,
		})
	if res.Error != nil {
		return paymentpkg.Outcome{}, fmt.Errorf("mark order %d failed: %w", orderID, res.Error)
	}
	if res.RowsAffected == 1 {
		return paymentpkg.Outcome{Transitioned: true, Status: order.StatusFailed}, nil
	}

	status, err := statusOf(db, orderID)
	if err != nil {
		return paymentpkg.Outcome{}, err
	}
	return paymentpkg.Outcome{Status: status}, nil
}

// ListStalePending returns PENDING orders created inside (createdAfter, createdBefore), oldest first.
func (r *PaymentRepository) ListStalePending(ctx context.Context, createdBefore, createdAfter time.Time, limit int) ([]*order.Order, error) {
	var orders []*order.Order
	q := r.db.WithContext(ctx).
		Where("status = ?", order.StatusPending).
		Where("created_at < ?", createdBefore)
	if !createdAfter.IsZero() {
		q = q.Where("created_at > ?", createdAfter)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Order("created_at ASC").Find(&orders).Error
	return orders, err
}

func markEnrollmentPaid(tx *gorm.DB, enrollmentID int64, paidAt time.Time) error {
	res := tx.Model(&enrollment.Enrollment{}).
		Where("id = ? AND type <> ?", enrollmentID, enrollment.TypeAdmin).
		Updates(map[string]interface{}{
			"type":    enrollment.TypePaid,
			"paid_at": paidAt,
		})
	if res.Error != nil {
		return fmt.Errorf("mark enrollment %d paid: %w", enrollmentID, res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := tx.Model(&enrollment.Enrollment{}).Where("id = ?", enrollmentID).Count(&count).Error; err != nil {
		return fmt.Errorf("check enrollment %d: %w", enrollmentID, err)
	}
	if count == 0 {
		return internal.ErrEnrollmentNotFound
	}
	return nil
}

func statusOf(db *gorm.DB, orderID int64) (string, error) {
	var current order.Order
	if err := db.Select("status").First(&current, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", internal.ErrOrderNotFound
		}
		return "", fmt.Errorf("read order %d status: %w", orderID, err)
	}
	return current.Status, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
