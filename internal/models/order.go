package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderType distinguishes money-in from money-out orders. The two types
// authenticate with different merchant keys.
type OrderType string

const (
	OrderTypeDeposit  OrderType = "deposit"
	OrderTypeWithdraw OrderType = "withdraw"
)

// OrderStatus order lifecycle status
type OrderStatus string

const (
	OrderStatusPending OrderStatus = "pending"
	OrderStatusSuccess OrderStatus = "success"
	OrderStatusFailed  OrderStatus = "failed"
	OrderStatusExpired OrderStatus = "expired"
)

// IsTerminal reports whether the status permits no further transition.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusSuccess || s == OrderStatusFailed || s == OrderStatusExpired
}

// CallbackStatus merchant webhook delivery status
type CallbackStatus string

const (
	CallbackStatusPending CallbackStatus = "pending"
	CallbackStatusSuccess CallbackStatus = "success"
	CallbackStatusFailed  CallbackStatus = "failed" // budget exhausted, manual requeue only
)

// Order is one deposit or withdrawal intent.
// (merchant_id, out_trade_no, order_type) is the idempotency key.
type Order struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	OrderNo    string    `json:"order_no" gorm:"size:64;uniqueIndex;not null"`
	OutTradeNo string    `json:"out_trade_no" gorm:"size:128;not null;uniqueIndex:idx_merchant_ref_type,priority:2"`
	OrderType  OrderType `json:"order_type" gorm:"size:16;not null;uniqueIndex:idx_merchant_ref_type,priority:3"`
	MerchantID uint      `json:"merchant_id" gorm:"not null;index;uniqueIndex:idx_merchant_ref_type,priority:1"`

	Token string `json:"token" gorm:"size:32;not null"`
	Chain string `json:"chain" gorm:"size:32;not null"`

	Amount    decimal.Decimal `json:"amount" gorm:"type:decimal(32,8);not null"`
	Fee       decimal.Decimal `json:"fee" gorm:"type:decimal(32,8);not null"`
	NetAmount decimal.Decimal `json:"net_amount" gorm:"type:decimal(32,8);not null"`

	Status        OrderStatus `json:"status" gorm:"size:16;not null;default:pending;index"`
	TxHash        string      `json:"tx_hash" gorm:"size:128"`
	Confirmations int         `json:"confirmations" gorm:"default:0"`

	// deposit orders carry the allocated receive address, withdrawals the destination
	WalletAddress string `json:"wallet_address" gorm:"size:128"`
	ToAddress     string `json:"to_address" gorm:"size:128"`

	CallbackURL        string         `json:"callback_url" gorm:"size:512;not null"`
	CallbackStatus     CallbackStatus `json:"callback_status" gorm:"size:16;not null;default:pending"`
	CallbackRetryCount int            `json:"callback_retry_count" gorm:"default:0"`
	LastCallbackAt     *time.Time     `json:"last_callback_at"`

	ExtraData string `json:"extra_data" gorm:"type:text"`

	ExpireTime  *time.Time `json:"expire_time" gorm:"index"` // deposit only
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}
