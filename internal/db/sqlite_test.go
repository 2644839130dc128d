package db

import (
	"path/filepath"
	"testing"

	"github.com/doctorsstudio/crmsync/internal/db/models"
)

func TestInitDB_MigratesSchema(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	database, err := InitDB(dbPath)
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}

	for _, model := range []any{
		&models.Contact{},
		&models.Order{},
		&models.Product{},
		&models.OAuth2Token{},
		&models.TokenRequestLog{},
		&models.SystemLog{},
		&models.SyncState{},
		&models.Appointment{},
		&models.AppointmentWebhookLog{},
	} {
		if !database.Migrator().HasTable(model) {
			t.Errorf("table for %T not created", model)
		}
	}
}

func TestInitDB_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	database, err := InitDB(dbPath)
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	if err := database.Create(&models.Contact{ID: "c-1", FirstName: "Jane"}).Error; err != nil {
		t.Fatalf("create: %v", err)
	}

	// Reopening the same file must migrate idempotently and keep the data.
	reopened, err := InitDB(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	var contact models.Contact
	if err := reopened.First(&contact, "id = ?", "c-1").Error; err != nil {
		t.Fatalf("data lost across reopen: %v", err)
	}
}
