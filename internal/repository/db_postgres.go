// Package repository contains the repository layer for the Marketplace API
package repository

import (
	"fmt"

	"github.com/tigerpop/marketplaceapi/internal/config"
	"github.com/tigerpop/marketplaceapi/internal/models"
	"github.com/tigerpop/marketplaceapi/pkg/utils/zaplogger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SchemaName is the Postgres schema holding all marketplace tables
var SchemaName = "marketplace"

// ConnectPostgres connects to a Postgres database and returns a GORM database object
func ConnectPostgres(cfg *config.Config) (*gorm.DB, error) {
	zaplogger.Info(config.SingleLine)
	zaplogger.Info("Initializing Postgres")
	zaplogger.Info(config.SingleLine)

	// Set up GORM logger
	var logLevel logger.LogLevel
	switch cfg.PostgresLogLevel {
	case "silent":
		logLevel = logger.Silent
	case "error":
		logLevel = logger.Error
	case "warn":
		logLevel = logger.Warn
	case "info":
		logLevel = logger.Info
	default:
		logLevel = logger.Info
	}

	// TranslateError maps driver unique-violation failures to
	// gorm.ErrDuplicatedKey, which the identity resolver relies on.
	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	}

	// Open database connection
	postgresDSN := cfg.PostgresDsn + " search_path=" + SchemaName + ",public"
	db, err := gorm.Open(postgres.Open(postgresDSN), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %v", err)
	}

	zaplogger.Info("  * connected")

	// Create the schema if it doesn't exist
	createSchemaSql := fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", SchemaName)
	if err := db.Exec(createSchemaSql).Error; err != nil {
		return nil, fmt.Errorf("failed to create schema: %v", err)
	}
	zaplogger.Info("  * migrating schema: \"" + SchemaName + "\"")

	// AutoMigrate will create tables and add/modify columns
	if err := autoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to auto migrate: %v", err)
	}

	return db, nil
}

func autoMigrate(db *gorm.DB) error {
	tables := []struct {
		name  string
		model interface{}
	}{
		{models.UsersTableName, &models.User{}},
		{models.ListingsTableName, &models.Listing{}},
		{models.ListingImagesTableName, &models.ListingImage{}},
		{models.HeartedListingsTableName, &models.HeartedListing{}},
	}

	zaplogger.Info("  * migrating tables")
	for _, table := range tables {
		err := db.Table(SchemaName + "." + table.name).AutoMigrate(table.model)
		if err != nil {
			return fmt.Errorf("failed to auto migrate table: %s, err:%v", table.name, err)
		}
		zaplogger.Info("    - \"" + SchemaName + "." + table.name + "\"")
	}

	return nil
}
