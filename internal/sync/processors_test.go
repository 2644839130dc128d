package sync

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/doctorsstudio/crmsync/internal/db/models"
)

func TestProcessGhlContact_CreatesAndLinks(t *testing.T) {
	db := newTestDB(t)

	raw := json.RawMessage(`{"id":"ghl-1","firstName":"Jane","lastName":"Doe","email":"jane@example.com","phone":"555-123-4567","tags":["vip"]}`)
	if err := ProcessGhlContact(db, raw); err != nil {
		t.Fatalf("process: %v", err)
	}

	var contact models.Contact
	if err := db.First(&contact, "ghl_contact_id = ?", "ghl-1").Error; err != nil {
		t.Fatalf("contact not created: %v", err)
	}
	if contact.FullName() != "Jane Doe" || contact.NormalizedPhone != "5551234567" {
		t.Fatalf("contact fields wrong: %+v", contact)
	}
	if contact.PrimarySource != models.SourceGhl {
		t.Fatalf("primary source = %q", contact.PrimarySource)
	}
	if contact.GhlTags != `["vip"]` {
		t.Fatalf("tags not stored: %q", contact.GhlTags)
	}
}

func TestProcessGhlContact_MissingIDIsValidationError(t *testing.T) {
	db := newTestDB(t)

	err := ProcessGhlContact(db, json.RawMessage(`{"firstName":"NoID"}`))
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	var count int64
	db.Model(&models.Contact{}).Count(&count)
	if count != 0 {
		t.Fatalf("invalid record created %d contact(s)", count)
	}
}

func TestProcessWooOrder_GuestCheckoutCreatesContact(t *testing.T) {
	db := newTestDB(t)

	raw := json.RawMessage(`{
		"id": 900,
		"number": "900",
		"status": "completed",
		"total": "49.90",
		"date_created": "2026-08-30T12:00:00",
		"customer_id": 0,
		"billing": {
			"first_name": "Guest",
			"last_name": "Buyer",
			"email": "guest@example.com",
			"phone": "555-000-1111"
		}
	}`)
	if err := ProcessWooOrder(db, raw); err != nil {
		t.Fatalf("process: %v", err)
	}

	var order models.Order
	if err := db.First(&order, "woo_order_id = ?", "900").Error; err != nil {
		t.Fatalf("order not created: %v", err)
	}
	if order.TotalAmount != 49.90 || order.Status != "completed" {
		t.Fatalf("order fields wrong: %+v", order)
	}

	var contact models.Contact
	if err := db.First(&contact, "id = ?", order.ContactID).Error; err != nil {
		t.Fatalf("guest contact not created: %v", err)
	}
	if contact.Email == nil || *contact.Email != "guest@example.com" {
		t.Fatalf("guest contact email wrong: %+v", contact.Email)
	}

	// Replaying the order must not duplicate it.
	if err := ProcessWooOrder(db, raw); err != nil {
		t.Fatalf("replay: %v", err)
	}
	var count int64
	db.Model(&models.Order{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 order, got %d", count)
	}
}

func TestProcessWooProduct_Upserts(t *testing.T) {
	db := newTestDB(t)

	raw := json.RawMessage(`{"id":7,"name":"Serum","price":"19.99","regular_price":"24.99","status":"publish","stock_status":"instock","categories":[{"name":"Skincare"}]}`)
	if err := ProcessWooProduct(db, raw); err != nil {
		t.Fatalf("process: %v", err)
	}

	updated := json.RawMessage(`{"id":7,"name":"Serum","price":"17.99","regular_price":"24.99","status":"publish","stock_status":"instock"}`)
	if err := ProcessWooProduct(db, updated); err != nil {
		t.Fatalf("reprocess: %v", err)
	}

	var product models.Product
	if err := db.First(&product, "woo_product_id = ?", 7).Error; err != nil {
		t.Fatalf("product not found: %v", err)
	}
	if product.Price != 17.99 {
		t.Fatalf("price not updated: %v", product.Price)
	}
	var count int64
	db.Model(&models.Product{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 product, got %d", count)
	}
}
