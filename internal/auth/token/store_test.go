package token

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/doctorsstudio/crmsync/internal/db/models"
)

// newTestDB opens an isolated in-memory database per test.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.OAuth2Token{},
		&models.TokenRequestLog{},
		&models.SystemLog{},
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func TestStoreUpsert_CreateThenUpdate(t *testing.T) {
	store := NewStore(newTestDB(t))

	created, err := store.Upsert("loc-1", "access-1", "refresh-1", time.Now().Add(time.Hour), "Main Clinic")
	if err != nil {
		t.Fatalf("create upsert: %v", err)
	}

	updated, err := store.Upsert("loc-1", "access-2", "refresh-2", time.Now().Add(2*time.Hour), "")
	if err != nil {
		t.Fatalf("update upsert: %v", err)
	}
	if updated.ID != created.ID {
		t.Fatalf("upsert created a second row: %s vs %s", created.ID, updated.ID)
	}
	if updated.AccessToken != "access-2" || updated.RefreshToken != "refresh-2" {
		t.Fatalf("tokens not replaced: %+v", updated)
	}
	if updated.LocationName != "Main Clinic" {
		t.Fatalf("empty location name cleared the stored one: %q", updated.LocationName)
	}

	toks, err := store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(toks) != 1 {
		t.Fatalf("expected 1 token, got %d", len(toks))
	}
}

func TestStoreGetToken_Missing(t *testing.T) {
	store := NewStore(newTestDB(t))

	_, err := store.GetToken("nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreExpiringBefore(t *testing.T) {
	store := NewStore(newTestDB(t))

	// One token expiring in 10 minutes, one in 2 hours.
	if _, err := store.Upsert("loc-soon", "a", "r", time.Now().Add(10*time.Minute), ""); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := store.Upsert("loc-later", "a", "r", time.Now().Add(2*time.Hour), ""); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	expiring, err := store.ExpiringBefore(time.Now().Add(30 * time.Minute))
	if err != nil {
		t.Fatalf("expiring before: %v", err)
	}
	if len(expiring) != 1 || expiring[0].LocationID != "loc-soon" {
		t.Fatalf("expected only loc-soon, got %+v", expiring)
	}
}
