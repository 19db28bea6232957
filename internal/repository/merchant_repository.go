package repository

import (
	"context"

	"gorm.io/gorm"

	"akx-gateway/internal/models"
)

// MerchantRepository defines the interface for Merchant data access
type MerchantRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Merchant, error)
	GetActiveByID(ctx context.Context, id uint) (*models.Merchant, error)
}

type merchantRepository struct {
	db *gorm.DB
}

// NewMerchantRepository creates a new MerchantRepository instance
func NewMerchantRepository(db *gorm.DB) MerchantRepository {
	return &merchantRepository{db: db}
}

func (r *merchantRepository) GetByID(ctx context.Context, id uint) (*models.Merchant, error) {
	var merchant models.Merchant
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&merchant).Error; err != nil {
		return nil, err
	}
	return &merchant, nil
}

func (r *merchantRepository) GetActiveByID(ctx context.Context, id uint) (*models.Merchant, error) {
	var merchant models.Merchant
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&merchant).Error
	if err != nil {
		return nil, err
	}
	return &merchant, nil
}
