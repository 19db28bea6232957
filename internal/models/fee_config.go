package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FeeConfig is a withdrawal fee schedule: fee = amount*percentage + fixed.
// A merchant references one via fee_config_id; the row flagged is_default
// backs merchants without their own schedule.
type FeeConfig struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	Name      string `json:"name" gorm:"size:64;not null"`
	IsDefault bool   `json:"is_default" gorm:"not null;default:false;index"`

	Percentage decimal.Decimal `json:"percentage" gorm:"type:decimal(16,8);not null;default:0"`
	Fixed      decimal.Decimal `json:"fixed" gorm:"type:decimal(32,8);not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (FeeConfig) TableName() string {
	return "fee_configs"
}

// Evaluate applies the schedule to an amount.
func (f *FeeConfig) Evaluate(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(f.Percentage).Add(f.Fixed)
}
