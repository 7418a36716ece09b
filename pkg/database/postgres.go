package database

import (
	"time"

	"marketplace-backend/pkg/config"
	"marketplace-backend/pkg/logger"

	"github.com/cockroachdb/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewPostgresConnection opens the authoritative relational store.
func NewPostgresConnection(cfg *config.Config) (*gorm.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("database url is not configured (set DATABASE_URL or PGHOST/PGPORT/PGUSER/PGPASSWORD/PGDATABASE)")
	}

	logLevel := gormlogger.Silent
	if cfg.AppEnv == "development" {
		logLevel = gormlogger.Warn
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}

	sqlDB, err := db.DB()
	if err == nil {
		sqlDB.SetMaxOpenConns(15)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(300 * time.Second)
		logger.GetLogger("database").Info("Database connection pool configured")
	}

	return db, nil
}

// Migrate runs AutoMigrate for the given models. Errors are logged and
// returned but callers may continue with limited functionality.
func Migrate(db *gorm.DB, models ...interface{}) error {
	log := logger.GetLogger("database")
	log.Info("Attempting to create database tables...")
	if err := db.AutoMigrate(models...); err != nil {
		log.Errorw("Error creating database tables", "error", err)
		return errors.Wrap(err, "auto-migrate")
	}
	log.Info("Database tables created successfully")
	return nil
}
