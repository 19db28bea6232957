package db

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"akx-gateway/internal/config"
	"akx-gateway/internal/models"
)

// Open connects to postgres, tunes the pool and migrates the schema.
// The handle is returned to the caller, not stashed in a package global.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN is required")
	}

	gdb, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		SkipDefaultTransaction:                   true,
		PrepareStmt:                              true,
		CreateBatchSize:                          1000,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Println("✅ Database connected successfully")

	if err := migrate(gdb); err != nil {
		return nil, err
	}
	return gdb, nil
}

func migrate(gdb *gorm.DB) error {
	log.Println("🚀 Starting database schema migration with GORM AutoMigrate...")

	if err := gdb.AutoMigrate(
		&models.Merchant{},
		&models.Order{},
		&models.Wallet{},
		&models.TokenChainSupport{},
		&models.FeeConfig{},
		&models.QueueTask{},
	); err != nil {
		return fmt.Errorf("AutoMigrate failed: %w", err)
	}

	if err := seedDefaultFeeConfig(gdb); err != nil {
		return err
	}

	log.Println("✅ Database schema migrated successfully")
	return nil
}

// seedDefaultFeeConfig guarantees a default fee schedule row exists so
// fee resolution always has a floor to fall back to.
func seedDefaultFeeConfig(gdb *gorm.DB) error {
	var count int64
	if err := gdb.Model(&models.FeeConfig{}).Where("is_default = ?", true).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check default fee config: %w", err)
	}
	if count > 0 {
		return nil
	}

	def := models.FeeConfig{Name: "default", IsDefault: true}
	if err := gdb.Create(&def).Error; err != nil {
		return fmt.Errorf("failed to seed default fee config: %w", err)
	}
	log.Println("✅ Seeded default fee config (zero fees)")
	return nil
}
