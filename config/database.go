package config

import (
	"fmt"
	"time"

	"github.com/yeremiapane/restaurant-reservation/utils"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB opens the MySQL database. Duplicate-key and not-found errors are
// translated to gorm's sentinels so the store can detect them portably.
func InitDB(cfg Config) (*gorm.DB, error) {
	logLevel := logger.Warn
	if cfg.GinMode == "release" {
		logLevel = logger.Error
	}

	db, err := gorm.Open(mysql.Open(cfg.MySQLDSN()), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logLevel),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	utils.InfoLogger.WithField("host", cfg.DBHost).Info("database connected")
	return db, nil
}
