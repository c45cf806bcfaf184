package database

import (
	"fmt"

	"github.com/anjiri1684/course_academy/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func ConnectDB(dsn string, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		PrepareStmt:                              false,
		SkipDefaultTransaction:                   true,
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		Logger:                                   logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	log.Info("database connected")
	return db, nil
}

// partial indexes AutoMigrate cannot express
var indexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_payout_one_pending ON payout_requests (user_id) WHERE status = 'pending'`,
	`CREATE INDEX IF NOT EXISTS idx_payment_sessions_open ON payment_sessions (created_at) WHERE status = 'open'`,
}

func Migrate(db *gorm.DB, log *zap.Logger) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.Lesson{},
		&models.ShopProduct{},
		&models.Purchase{},
		&models.PaymentSession{},
		&models.Referral{},
		&models.PayoutRequest{},
	)
	if err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	for _, stmt := range indexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}

	log.Info("database migration successful")
	return nil
}
