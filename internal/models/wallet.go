package models

import "time"

// WalletType managed wallet purpose
type WalletType string

const (
	WalletTypeDeposit WalletType = "deposit"
	WalletTypeHot     WalletType = "hot"
	WalletTypeCold    WalletType = "cold"
)

// Wallet is a managed on-chain address. Deposit wallets are handed to
// orders in least-recently-used rotation; last_used_at drives the
// rotation and is bumped inside the allocating transaction.
type Wallet struct {
	ID         uint       `json:"id" gorm:"primaryKey"`
	Address    string     `json:"address" gorm:"size:128;not null;uniqueIndex:idx_wallet_addr_chain,priority:1"`
	Chain      string     `json:"chain" gorm:"size:32;not null;uniqueIndex:idx_wallet_addr_chain,priority:2;index:idx_wallet_pool,priority:1"`
	Token      string     `json:"token" gorm:"size:32;not null;index:idx_wallet_pool,priority:2"`
	WalletType WalletType `json:"wallet_type" gorm:"size:16;not null;default:deposit"`
	IsActive   bool       `json:"is_active" gorm:"not null;default:true"`
	LastUsedAt *time.Time `json:"last_used_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (Wallet) TableName() string {
	return "wallets"
}
