package database

import (
	"time"

	"sitesupply/internal/config"
	"sitesupply/internal/model"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(cfg config.PostgresConfig, production bool, logger *zap.Logger) (*gorm.DB, error) {
	logLevel := gormlogger.Warn
	if production {
		logLevel = gormlogger.Error
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Second)

	// Auto-migrate core models
	err = db.AutoMigrate(
		&model.User{},
		&model.Site{},
		&model.Product{},
		&model.StockMovement{},
		&model.Order{},
		&model.OrderProduct{},
		&model.ReturnRecord{},
		&model.ReturnItem{},
		&model.Notification{},
		&model.AuditLog{},
	)
	if err != nil {
		logger.Warn("Failed to auto-migrate models", zap.Error(err))
	}

	return db, nil
}
