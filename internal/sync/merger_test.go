package sync

import (
	"encoding/json"
	"testing"

	"github.com/doctorsstudio/crmsync/internal/db/models"
	"github.com/doctorsstudio/crmsync/internal/ghl"
	"github.com/doctorsstudio/crmsync/internal/woo"
)

func TestMergeGhlContact_IsIdempotent(t *testing.T) {
	db := newTestDB(t)

	raw := json.RawMessage(`{"id":"ghl-1","firstName":"Jane","lastName":"Doe","email":"jane@example.com","phone":"+1 (555) 123-4567"}`)
	var payload ghl.Contact
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	first, err := MergeGhlContact(db, nil, &payload, raw)
	if err != nil {
		t.Fatalf("first merge: %v", err)
	}

	existing, err := Resolve(db, Candidate{GhlContactID: "ghl-1"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	second, err := MergeGhlContact(db, existing, &payload, raw)
	if err != nil {
		t.Fatalf("second merge: %v", err)
	}

	if second.ID != first.ID {
		t.Fatalf("expected same contact, got %s then %s", first.ID, second.ID)
	}
	var count int64
	db.Model(&models.Contact{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 contact, got %d", count)
	}
	if second.FirstName != "Jane" || second.NormalizedPhone != "+15551234567" {
		t.Fatalf("unexpected merged contact: %+v", second)
	}
}

func TestMergeGhlContact_DoesNotBlankExistingFields(t *testing.T) {
	db := newTestDB(t)

	existing := models.Contact{
		ID:            "c-1",
		FirstName:     "Jane",
		LastName:      "Doe",
		Phone:         "5551234567",
		PrimarySource: models.SourceWoo,
	}
	mustCreate(t, db, &existing)

	// Sparse payload: only the id and email are present.
	raw := json.RawMessage(`{"id":"ghl-1","email":"jane@example.com"}`)
	var payload ghl.Contact
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	merged, err := MergeGhlContact(db, &existing, &payload, raw)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if merged.FirstName != "Jane" || merged.LastName != "Doe" || merged.Phone != "5551234567" {
		t.Fatalf("sparse payload blanked fields: %+v", merged)
	}
	if merged.Email == nil || *merged.Email != "jane@example.com" {
		t.Fatalf("email not merged: %+v", merged.Email)
	}
}

func TestPrimarySource_UpgradeOnly(t *testing.T) {
	db := newTestDB(t)

	t.Run("crm contact is claimed by first integration", func(t *testing.T) {
		contact := models.Contact{ID: "c-crm", PrimarySource: models.SourceCrm, Email: strPtr("crm@example.com")}
		mustCreate(t, db, &contact)

		raw := json.RawMessage(`{"id":"ghl-up","email":"crm@example.com"}`)
		var payload ghl.Contact
		_ = json.Unmarshal(raw, &payload)

		merged, err := MergeGhlContact(db, &contact, &payload, raw)
		if err != nil {
			t.Fatalf("merge: %v", err)
		}
		if merged.PrimarySource != models.SourceGhl {
			t.Fatalf("expected primary source upgraded to ghl, got %s", merged.PrimarySource)
		}
	})

	t.Run("integration-owned contact never changes hands", func(t *testing.T) {
		contact := models.Contact{ID: "c-woo", PrimarySource: models.SourceWoo, Email: strPtr("woo@example.com")}
		mustCreate(t, db, &contact)

		raw := json.RawMessage(`{"id":"ghl-keep","email":"woo@example.com"}`)
		var payload ghl.Contact
		_ = json.Unmarshal(raw, &payload)

		merged, err := MergeGhlContact(db, &contact, &payload, raw)
		if err != nil {
			t.Fatalf("merge: %v", err)
		}
		if merged.PrimarySource != models.SourceWoo {
			t.Fatalf("primary source flipped to %s", merged.PrimarySource)
		}
		if merged.GhlContactID == nil || *merged.GhlContactID != "ghl-keep" {
			t.Fatalf("ghl link not recorded: %+v", merged.GhlContactID)
		}
	})
}

func TestMergeWooCustomer_LinksBothSources(t *testing.T) {
	db := newTestDB(t)

	// A GHL-synced contact is later matched by a Woo customer via phone.
	seed := models.Contact{
		ID:              "c-both",
		GhlContactID:    strPtr("ghl-9"),
		NormalizedPhone: "+15559876543",
		PrimarySource:   models.SourceGhl,
	}
	mustCreate(t, db, &seed)

	raw := json.RawMessage(`{"id":42,"email":"both@example.com","billing":{"phone":"+1 555 987 6543","city":"Austin"}}`)
	var payload woo.Customer
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	existing, err := Resolve(db, Candidate{WooCustomerID: 42, Phone: payload.Billing.Phone, Email: payload.Email})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if existing == nil || existing.ID != "c-both" {
		t.Fatalf("expected phone match to seed contact, got %+v", existing)
	}

	merged, err := MergeWooCustomer(db, existing, &payload, raw)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if !merged.HasWoo() || !merged.HasGhl() {
		t.Fatalf("expected contact linked to both sources: %+v", merged)
	}
	if merged.PrimarySource != models.SourceGhl {
		t.Fatalf("primary source downgraded to %s", merged.PrimarySource)
	}
	if merged.BillingCity != "Austin" {
		t.Fatalf("billing city not merged: %q", merged.BillingCity)
	}
}
