package db

import (
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/doctorsstudio/crmsync/internal/db/models"
)

// InitDB opens the SQLite database and runs migrations for all models.
func InitDB(dbPath string) (*gorm.DB, error) {
	database, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	if err := database.AutoMigrate(
		&models.Contact{},
		&models.Order{},
		&models.Product{},
		&models.OAuth2Token{},
		&models.TokenRequestLog{},
		&models.SystemLog{},
		&models.SyncState{},
		&models.Appointment{},
		&models.AppointmentWebhookLog{},
	); err != nil {
		return nil, err
	}

	return database, nil
}
