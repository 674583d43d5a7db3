package database

import (
	"fmt"
	"time"

	"github.com/fanserve/media-api/domain/model"
	"github.com/fanserve/media-api/infrastructure/config"
	"github.com/fanserve/media-api/infrastructure/logger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var dbClient *gorm.DB

func InitDb(cfg *config.Config, zapLogger *zap.Logger) error {
	cnn := cfg.GetPostgresConnectionString()

	db, err := gorm.Open(postgres.Open(cnn), &gorm.Config{
		Logger: logger.NewGormLogger(zapLogger),
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	sqlDb, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	if err := sqlDb.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	sqlDb.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	sqlDb.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	sqlDb.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime * time.Minute)

	dbClient = db
	return nil
}

// Migrate creates or updates the file_records table.
func Migrate() error {
	if dbClient == nil {
		return fmt.Errorf("database not initialized")
	}
	return dbClient.AutoMigrate(&model.FileRecord{})
}

func GetDb() *gorm.DB {
	return dbClient
}

func CloseDb() error {
	if dbClient == nil {
		return nil
	}
	sqlDb, err := dbClient.DB()
	if err != nil {
		return err
	}
	return sqlDb.Close()
}
