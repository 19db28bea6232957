package services

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"akx-gateway/internal/models"
	"akx-gateway/internal/repository"
)

// FeeEvaluator resolves the effective fee for a withdrawal. Resolution
// priority: per-pair fixed override, merchant fee schedule, default
// schedule, zero.
type FeeEvaluator struct {
	feeConfigs repository.FeeConfigRepository
}

// NewFeeEvaluator creates the fee evaluator.
func NewFeeEvaluator(feeConfigs repository.FeeConfigRepository) *FeeEvaluator {
	return &FeeEvaluator{feeConfigs: feeConfigs}
}

// WithdrawFee computes the fee for a withdrawal of amount by merchant on
// the given pair. pair may be nil when the pair carries no configuration.
func (f *FeeEvaluator) WithdrawFee(ctx context.Context, merchant *models.Merchant, pair *models.TokenChainSupport, amount decimal.Decimal) (decimal.Decimal, error) {
	if pair != nil && pair.WithdrawFeeFixed != nil {
		return *pair.WithdrawFeeFixed, nil
	}

	if merchant.FeeConfigID != nil {
		cfg, err := f.feeConfigs.GetByID(ctx, *merchant.FeeConfigID)
		if err == nil {
			return cfg.Evaluate(amount), nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, err
		}
		// dangling fee_config_id falls through to the default schedule
	}

	cfg, err := f.feeConfigs.GetDefault(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return cfg.Evaluate(amount), nil
}
