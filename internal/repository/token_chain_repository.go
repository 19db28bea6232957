package repository

import (
	"context"

	"gorm.io/gorm"

	"akx-gateway/internal/models"
)

// TokenChainRepository defines the interface for TokenChainSupport data access
type TokenChainRepository interface {
	// GetEnabledPair returns the configuration row for an enabled
	// (token, chain) pair, or gorm.ErrRecordNotFound.
	GetEnabledPair(ctx context.Context, token, chain string) (*models.TokenChainSupport, error)
}

type tokenChainRepository struct {
	db *gorm.DB
}

// NewTokenChainRepository creates a new TokenChainRepository instance
func NewTokenChainRepository(db *gorm.DB) TokenChainRepository {
	return &tokenChainRepository{db: db}
}

func (r *tokenChainRepository) GetEnabledPair(ctx context.Context, token, chain string) (*models.TokenChainSupport, error) {
	var pair models.TokenChainSupport
	err := r.db.WithContext(ctx).
		Where("token = ? AND chain = ? AND enabled = ?", token, chain, true).
		First(&pair).Error
	if err != nil {
		return nil, err
	}
	return &pair, nil
}
