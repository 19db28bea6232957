package repository

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"akx-gateway/internal/models"
)

// OrderRepository defines the interface for Order data access
type OrderRepository interface {
	// Create inserts a deposit order. A concurrent duplicate reference
	// surfaces as ErrDuplicateReference via the unique index.
	Create(ctx context.Context, order *models.Order) error

	// CreateWithdrawal debits amount+fee from the merchant and inserts
	// the order in one transaction with a row lock on the merchant.
	CreateWithdrawal(ctx context.Context, order *models.Order) error

	GetByOrderNo(ctx context.Context, orderNo string) (*models.Order, error)
	GetByOutTradeNo(ctx context.Context, merchantID uint, outTradeNo string, orderType models.OrderType) (*models.Order, error)
	ReferenceExists(ctx context.Context, merchantID uint, outTradeNo string) (bool, error)

	// TransitionStatus moves a pending order to newStatus. Orders already
	// in a terminal status are left untouched; rowsAffected reports
	// whether this call performed the transition.
	TransitionStatus(ctx context.Context, orderNo string, newStatus models.OrderStatus, txHash string, confirmations *int) (bool, error)

	MarkCallbackSuccess(ctx context.Context, orderNo string) error
	MarkCallbackFailure(ctx context.Context, orderNo string, retryCount int, terminal bool) error
	ResetCallback(ctx context.Context, orderNo string) error
}

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new OrderRepository instance
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *models.Order) error {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateReference
		}
		return err
	}
	return nil
}

func (r *orderRepository) CreateWithdrawal(ctx context.Context, order *models.Order) error {
	total := order.Amount.Add(order.Fee)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var merchant models.Merchant
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", order.MerchantID).
			First(&merchant).Error; err != nil {
			return err
		}

		available := merchant.Balance.Add(merchant.CreditLimit)
		if available.LessThan(total) {
			return ErrInsufficientBalance
		}

		newBalance := merchant.Balance.Sub(total)
		if err := tx.Model(&models.Merchant{}).
			Where("id = ?", merchant.ID).
			Update("balance", newBalance).Error; err != nil {
			return fmt.Errorf("failed to debit merchant %d: %w", merchant.ID, err)
		}

		if err := tx.Create(order).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateReference
			}
			return err
		}

		log.Printf("💸 Debited %s from merchant %d for order %s (balance %s → %s)",
			total.String(), merchant.ID, order.OrderNo, merchant.Balance.String(), newBalance.String())
		return nil
	})
}

func (r *orderRepository) GetByOrderNo(ctx context.Context, orderNo string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("order_no = ?", orderNo).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetByOutTradeNo(ctx context.Context, merchantID uint, outTradeNo string, orderType models.OrderType) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("merchant_id = ? AND out_trade_no = ? AND order_type = ?", merchantID, outTradeNo, orderType).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) ReferenceExists(ctx context.Context, merchantID uint, outTradeNo string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("merchant_id = ? AND out_trade_no = ?", merchantID, outTradeNo).
		Count(&count).Error
	return count > 0, err
}

func (r *orderRepository) TransitionStatus(ctx context.Context, orderNo string, newStatus models.OrderStatus, txHash string, confirmations *int) (bool, error) {
	updates := map[string]interface{}{
		"status": newStatus,
	}
	if txHash != "" {
		updates["tx_hash"] = txHash
	}
	if confirmations != nil {
		updates["confirmations"] = *confirmations
	}
	if newStatus.IsTerminal() {
		updates["completed_at"] = gorm.Expr("NOW()")
	}

	// the WHERE guard is what makes terminal states sticky under races
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("order_no = ? AND status NOT IN ?", orderNo, []models.OrderStatus{
			models.OrderStatusSuccess,
			models.OrderStatusFailed,
			models.OrderStatusExpired,
		}).
		Updates(updates)

	if result.Error != nil {
		return false, fmt.Errorf("failed to update order status: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *orderRepository) MarkCallbackSuccess(ctx context.Context, orderNo string) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("order_no = ?", orderNo).
		Updates(map[string]interface{}{
			"callback_status":  models.CallbackStatusSuccess,
			"last_callback_at": now,
		}).Error
}

func (r *orderRepository) MarkCallbackFailure(ctx context.Context, orderNo string, retryCount int, terminal bool) error {
	now := time.Now()
	updates := map[string]interface{}{
		"callback_retry_count": retryCount,
		"last_callback_at":     now,
	}
	if terminal {
		updates["callback_status"] = models.CallbackStatusFailed
	}
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("order_no = ?", orderNo).
		Updates(updates).Error
}

// ResetCallback re-arms automatic delivery for an order whose budget was
// exhausted. Used by the operator requeue endpoint only.
func (r *orderRepository) ResetCallback(ctx context.Context, orderNo string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("order_no = ? AND callback_status = ?", orderNo, models.CallbackStatusFailed).
		Updates(map[string]interface{}{
			"callback_status":      models.CallbackStatusPending,
			"callback_retry_count": 0,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
