package config

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"fuel_tracker/internal/models"
)

// InitDB opens the configured database, applies migrations and returns the
// handle. SQLite is used for local development and tests.
func InitDB(cfg DBConfig, gl gormlogger.Interface) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		TranslateError: true,
		Logger:         gl,
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.SQLitePath)
	default:
		dialector = postgres.Open(cfg.DSN())
	}

	db, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Driver == "sqlite" {
		// One writer at a time; concurrent connections to the same file
		// (or an in-memory database) would otherwise see different states.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"driver": cfg.Driver,
		"name":   cfg.Name,
	}).Info("Database ready")
	return db, nil
}

// DSN renders the postgres connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode, c.TimeZone,
	)
}

// Migrate creates or updates every table the engine uses.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Driver{},
		&models.Geofence{},
		&models.Vehicle{},
		&models.Bowser{},
		&models.Sensor{},
		&models.SensorReading{},
		&models.GeofenceEvent{},
		&models.IdentityScan{},
		&models.FuelEvent{},
		&models.VehicleStatus{},
		&models.BowserStatus{},
		&models.Transaction{},
		&models.AuthenticationEvent{},
		&models.ProximityEvent{},
	)
	if err != nil {
		return fmt.Errorf("auto-migration failed: %w", err)
	}
	return nil
}
