package database

import (
	"context"
	"fmt"
	"time"

	"github.com/yashrajoria/tailoring-backend/services/payment-service/config"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const connectAttempts = 10

// ConnectPostgres opens the pool, retrying while the database comes up.
// The returned handle is owned by the caller and passed to repositories
// explicitly.
func ConnectPostgres(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		cfg.PostgresHost, cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDB,
		cfg.PostgresPort, cfg.PostgresSSLMode, cfg.PostgresTimeZone,
	)

	var err error
	for i := 0; i < connectAttempts; i++ {
		var db *gorm.DB
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err == nil {
			sqlDB, poolErr := db.DB()
			if poolErr != nil {
				return nil, fmt.Errorf("failed to get sql.DB: %w", poolErr)
			}
			sqlDB.SetMaxOpenConns(25)
			sqlDB.SetMaxIdleConns(5)
			sqlDB.SetConnMaxLifetime(5 * time.Minute)

			if err = sqlDB.PingContext(ctx); err == nil {
				logger.Info("Connected to PostgreSQL", zap.String("host", cfg.PostgresHost))
				return db, nil
			}
		}

		logger.Warn("DB connection failed, retrying",
			zap.Int("attempt", i+1),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(i+1) * 2 * time.Second):
		}
	}

	return nil, fmt.Errorf("failed to connect to PostgreSQL after %d attempts: %w", connectAttempts, err)
}

// Migrate creates the tables together with the (stripe_session_id,
// vendor_id) unique index the idempotency guard relies on.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Order{}, &models.OrderItem{}, &models.MeasurementSession{}); err != nil {
		return fmt.Errorf("AutoMigrate failed: %w", err)
	}
	return nil
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}
