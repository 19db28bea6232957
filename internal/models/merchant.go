package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MerchantRole access role of a gateway account
type MerchantRole string

const (
	MerchantRoleMerchant MerchantRole = "merchant"
	MerchantRoleAdmin    MerchantRole = "admin"
)

// Merchant is a tenant of the gateway. Each merchant signs deposit and
// withdrawal requests with independent secrets and is addressed
// externally as "M"+id.
type Merchant struct {
	ID       uint         `json:"id" gorm:"primaryKey"`
	Name     string       `json:"name" gorm:"size:128;not null"`
	Role     MerchantRole `json:"role" gorm:"size:16;not null;default:merchant"`
	IsActive bool         `json:"is_active" gorm:"not null;default:true"`

	DepositKey  string `json:"-" gorm:"size:128"`
	WithdrawKey string `json:"-" gorm:"size:128"`

	Balance     decimal.Decimal `json:"balance" gorm:"type:decimal(32,8);not null;default:0"`
	CreditLimit decimal.Decimal `json:"credit_limit" gorm:"type:decimal(32,8);not null;default:0"`

	FeeConfigID *uint `json:"fee_config_id"`

	// zero means "use the gateway default"
	CallbackMaxRetries   int `json:"callback_max_retries" gorm:"default:0"`
	DepositExpirySeconds int `json:"deposit_expiry_seconds" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Merchant) TableName() string {
	return "merchants"
}

// MerchantNo returns the external merchant identifier.
func (m *Merchant) MerchantNo() string {
	return fmt.Sprintf("M%d", m.ID)
}

// ParseMerchantNo extracts the numeric merchant id from an external
// merchant number. The form must be exactly "M"+<integer>.
func ParseMerchantNo(merchantNo string) (uint, bool) {
	if !strings.HasPrefix(merchantNo, "M") {
		return 0, false
	}
	id, err := strconv.ParseUint(merchantNo[1:], 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// SigningKey returns the secret for the given operation class, or ""
// when the merchant has none configured.
func (m *Merchant) SigningKey(orderType OrderType) string {
	if orderType == OrderTypeWithdraw {
		return m.WithdrawKey
	}
	return m.DepositKey
}
