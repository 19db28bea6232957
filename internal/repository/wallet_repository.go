package repository

import (
	"context"
	"errors"
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"akx-gateway/internal/models"
)

// WalletRepository defines the interface for Wallet data access
type WalletRepository interface {
	// AllocateDeposit hands out the least-recently-used active deposit
	// wallet for (chain, token) and bumps last_used_at in the same
	// transaction. SKIP LOCKED keeps concurrent allocations from
	// converging on one row.
	AllocateDeposit(ctx context.Context, chain, token string) (*models.Wallet, error)
}

type walletRepository struct {
	db *gorm.DB
}

// NewWalletRepository creates a new WalletRepository instance
func NewWalletRepository(db *gorm.DB) WalletRepository {
	return &walletRepository{db: db}
}

func (r *walletRepository) AllocateDeposit(ctx context.Context, chain, token string) (*models.Wallet, error) {
	var wallet models.Wallet

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("chain = ? AND token = ? AND wallet_type = ? AND is_active = ?",
				chain, token, models.WalletTypeDeposit, true).
			Order("last_used_at ASC NULLS FIRST").
			First(&wallet).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoAvailableWallet
			}
			return err
		}

		return tx.Model(&models.Wallet{}).
			Where("id = ?", wallet.ID).
			Update("last_used_at", gorm.Expr("NOW()")).Error
	})
	if err != nil {
		return nil, err
	}

	log.Printf("📬 Allocated deposit wallet %s for %s/%s", wallet.Address, chain, token)
	return &wallet, nil
}
