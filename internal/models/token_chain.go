package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TokenChainSupport enables a (token, chain) pair and carries its
// per-pair limits. Configuration data, read-only to the order core.
type TokenChainSupport struct {
	ID      uint   `json:"id" gorm:"primaryKey"`
	Token   string `json:"token" gorm:"size:32;not null;uniqueIndex:idx_token_chain,priority:1"`
	Chain   string `json:"chain" gorm:"size:32;not null;uniqueIndex:idx_token_chain,priority:2"`
	Enabled bool   `json:"enabled" gorm:"not null;default:true"`

	MinDeposit    decimal.Decimal `json:"min_deposit" gorm:"type:decimal(32,8);not null;default:0"`
	MinWithdrawal decimal.Decimal `json:"min_withdrawal" gorm:"type:decimal(32,8);not null;default:0"`

	// non-nil overrides every fee schedule for withdrawals on this pair
	WithdrawFeeFixed *decimal.Decimal `json:"withdraw_fee_fixed" gorm:"type:decimal(32,8)"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (TokenChainSupport) TableName() string {
	return "token_chain_supports"
}
