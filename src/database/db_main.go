package database

import (
	"fmt"
	"papertrader/src/database/migrations"
	"papertrader/src/model"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MainDB is the journal database. It stays nil when ENABLE_DB is false.
var MainDB *gorm.DB

// Dialector picks the gorm driver from the DSN scheme.
func Dialector(dsn string) gorm.Dialector {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return postgres.Open(dsn)
	}
	return sqlite.Open(dsn)
}

// Open connects to dsn and migrates the journal schema.
func Open(dsn string, gormLogLevel int) (*gorm.DB, error) {
	db, err := gorm.Open(Dialector(dsn),
		&gorm.Config{
			TranslateError: true,
			Logger:         logger.Default.LogMode(logger.LogLevel(gormLogLevel)),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get DB from GORM: %w", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(1 * time.Hour)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate runs schema and data migrations.
func Migrate(db *gorm.DB) error {
	// Add here all models that belong to the journal schema.
	if err := db.AutoMigrate(
		&model.OHLCVDaily{},
		&model.TransactionLog{},
		&model.Exception{},
		&migrations.DataMigration{},
	); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		return fmt.Errorf("failed to run data migrations: %w", err)
	}
	return nil
}

// InitMainDB initializes MainDB from the environment. It is a no-op when
// ENABLE_DB is false.
func InitMainDB() error {
	config := GetConfig()
	if !config.EnableDB {
		logrus.Debug("[database] journal disabled")
		return nil
	}

	db, err := Open(config.DatabaseURL, config.GormLogLevel)
	if err != nil {
		return err
	}

	// Assign to the global variable only after a successful connection.
	MainDB = db

	logrus.Info("[database] MainDB connection established, migrations completed")
	return nil
}
