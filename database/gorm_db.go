package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/camden-git/beachfinder/logging"
	"github.com/camden-git/beachfinder/models"
)

// sqliteParams are appended to every DSN. Transactions begin IMMEDIATE so a
// read-then-write sequence never has to upgrade its lock mid-transaction.
const sqliteParams = "_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate"

func sqliteDSN(dataSourceName string) string {
	if strings.Contains(dataSourceName, "?") {
		return dataSourceName + "&" + sqliteParams
	}
	return dataSourceName + "?" + sqliteParams
}

// InitGormDB opens the SQLite database and returns the GORM handle.
func InitGormDB(dataSourceName string) (*gorm.DB, error) {
	gormLogger := logger.New(
		logging.GormWriter{},
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(sqliteDSN(dataSourceName)), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database using GORM: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB from GORM: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	logging.Info().Str("path", dataSourceName).Msg("database initialized")
	return db, nil
}

// AutoMigrateModels creates or updates the schema for every model.
func AutoMigrateModels(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Beach{},
		&models.BeachImage{},
	)
	if err != nil {
		return fmt.Errorf("GORM AutoMigrate failed: %w", err)
	}
	logging.Info().Msg("database schema migrated")
	return nil
}

// Open initializes GORM, migrates the schema and returns both handles. The
// *sql.DB shares GORM's connection pool and is used for hand-built statements.
func Open(dataSourceName string) (*gorm.DB, *sql.DB, error) {
	gdb, err := InitGormDB(dataSourceName)
	if err != nil {
		return nil, nil, err
	}
	if err := AutoMigrateModels(gdb); err != nil {
		return nil, nil, err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get underlying sql.DB from GORM: %w", err)
	}
	return gdb, sqlDB, nil
}
