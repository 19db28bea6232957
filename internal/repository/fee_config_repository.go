package repository

import (
	"context"

	"gorm.io/gorm"

	"akx-gateway/internal/models"
)

// FeeConfigRepository defines the interface for FeeConfig data access
type FeeConfigRepository interface {
	GetByID(ctx context.Context, id uint) (*models.FeeConfig, error)
	GetDefault(ctx context.Context) (*models.FeeConfig, error)
}

type feeConfigRepository struct {
	db *gorm.DB
}

// NewFeeConfigRepository creates a new FeeConfigRepository instance
func NewFeeConfigRepository(db *gorm.DB) FeeConfigRepository {
	return &feeConfigRepository{db: db}
}

func (r *feeConfigRepository) GetByID(ctx context.Context, id uint) (*models.FeeConfig, error) {
	var cfg models.FeeConfig
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&cfg).Error; err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *feeConfigRepository) GetDefault(ctx context.Context) (*models.FeeConfig, error) {
	var cfg models.FeeConfig
	err := r.db.WithContext(ctx).
		Where("is_default = ?", true).
		Order("id ASC").
		First(&cfg).Error
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
