// Package database opens the authorization store and migrates its schema.
package database

import (
	"errors"
	"log"

	"github.com/steams-social/steams-api/config"
	"github.com/steams-social/steams-api/database/model"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var db *gorm.DB

func initModels() error {
	models := []any{
		&model.User{},
		&model.Admin{},
		&model.Complaint{},
		&model.ComplaintAdmin{},
	}
	for _, model := range models {
		if err := db.AutoMigrate(model); err != nil {
			log.Printf("Error auto migrating model: %v", err)
			return err
		}
	}
	return nil
}

// Open connects to the configured database without touching the package-level handle.
func Open(cfg *config.Store) (*gorm.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.EnsureDir(); err != nil {
		return nil, err
	}

	var gormLogger logger.Interface
	if config.IsDebug() {
		gormLogger = logger.Default
	} else {
		gormLogger = logger.Discard
	}

	c := &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	}

	var dialector gorm.Dialector
	if cfg.IsSQLite() {
		dialector = sqlite.Open(cfg.DSN())
	} else {
		dialector = postgres.Open(cfg.DSN())
	}
	return gorm.Open(dialector, c)
}

// InitDB opens the database, migrates the schema and keeps the handle for GetDB.
func InitDB(cfg *config.Store) error {
	conn, err := Open(cfg)
	if err != nil {
		return err
	}
	db = conn

	if cfg.IsSQLite() {
		if err := db.Exec("PRAGMA foreign_keys = ON;").Error; err != nil {
			return err
		}
	}
	return initModels()
}

func CloseDB() error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	db = nil
	return sqlDB.Close()
}

func GetDB() *gorm.DB {
	return db
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
