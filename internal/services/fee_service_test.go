package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"akx-gateway/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestWithdrawFeePairOverrideWins(t *testing.T) {
	override := dec("2.5")
	pair := &models.TokenChainSupport{WithdrawFeeFixed: &override}

	feeCfgID := uint(3)
	merchant := &models.Merchant{ID: 1, FeeConfigID: &feeCfgID}

	fees := NewFeeEvaluator(newFakeFeeConfigRepo(
		&models.FeeConfig{ID: 1, IsDefault: true, Percentage: dec("0.01")},
		&models.FeeConfig{ID: 3, Percentage: dec("0.05")},
	))

	fee, err := fees.WithdrawFee(context.Background(), merchant, pair, dec("100"))
	require.NoError(t, err)
	assert.True(t, fee.Equal(dec("2.5")), "got %s", fee)
}

func TestWithdrawFeeMerchantSchedule(t *testing.T) {
	feeCfgID := uint(3)
	merchant := &models.Merchant{ID: 1, FeeConfigID: &feeCfgID}

	fees := NewFeeEvaluator(newFakeFeeConfigRepo(
		&models.FeeConfig{ID: 1, IsDefault: true, Percentage: dec("0.01")},
		&models.FeeConfig{ID: 3, Percentage: dec("0.02"), Fixed: dec("1")},
	))

	// 100*0.02 + 1 = 3
	fee, err := fees.WithdrawFee(context.Background(), merchant, &models.TokenChainSupport{}, dec("100"))
	require.NoError(t, err)
	assert.True(t, fee.Equal(dec("3")), "got %s", fee)
}

func TestWithdrawFeeDanglingScheduleFallsToDefault(t *testing.T) {
	missing := uint(99)
	merchant := &models.Merchant{ID: 1, FeeConfigID: &missing}

	fees := NewFeeEvaluator(newFakeFeeConfigRepo(
		&models.FeeConfig{ID: 1, IsDefault: true, Percentage: dec("0.01")},
	))

	fee, err := fees.WithdrawFee(context.Background(), merchant, &models.TokenChainSupport{}, dec("200"))
	require.NoError(t, err)
	assert.True(t, fee.Equal(dec("2")), "got %s", fee)
}

func TestWithdrawFeeNoScheduleAnywhere(t *testing.T) {
	merchant := &models.Merchant{ID: 1}
	fees := NewFeeEvaluator(newFakeFeeConfigRepo(nil))

	fee, err := fees.WithdrawFee(context.Background(), merchant, &models.TokenChainSupport{}, dec("100"))
	require.NoError(t, err)
	assert.True(t, fee.IsZero())
}
