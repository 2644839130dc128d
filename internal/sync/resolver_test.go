package sync

import (
	"testing"

	"github.com/doctorsstudio/crmsync/internal/db/models"
)

func TestResolve_ExternalIDBeatsPhone(t *testing.T) {
	db := newTestDB(t)

	// Two contacts: one matching by GHL id, another matching by phone.
	byID := models.Contact{ID: "c-id", GhlContactID: strPtr("ghl-123"), FirstName: "Ida"}
	byPhone := models.Contact{ID: "c-phone", NormalizedPhone: "+15551234567", FirstName: "Fern"}
	mustCreate(t, db, &byID)
	mustCreate(t, db, &byPhone)

	got, err := Resolve(db, Candidate{GhlContactID: "ghl-123", Phone: "(555) 123-4567"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got == nil || got.ID != "c-id" {
		t.Fatalf("expected external-id match c-id, got %+v", got)
	}
}

func TestResolve_PhoneBeatsEmail(t *testing.T) {
	db := newTestDB(t)

	byPhone := models.Contact{ID: "c-phone", NormalizedPhone: "+15551234567"}
	byEmail := models.Contact{ID: "c-email", Email: strPtr("shared@example.com")}
	mustCreate(t, db, &byPhone)
	mustCreate(t, db, &byEmail)

	got, err := Resolve(db, Candidate{Phone: "+1 555-123-4567", Email: "shared@example.com"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got == nil || got.ID != "c-phone" {
		t.Fatalf("expected phone match c-phone, got %+v", got)
	}
}

func TestResolve_EmailIsCaseInsensitive(t *testing.T) {
	db := newTestDB(t)

	mustCreate(t, db, &models.Contact{ID: "c-email", Email: strPtr("Jane.Doe@Example.com")})

	got, err := Resolve(db, Candidate{Email: "jane.doe@example.com"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got == nil || got.ID != "c-email" {
		t.Fatalf("expected case-insensitive email match, got %+v", got)
	}
}

func TestResolve_NoMatchReturnsNilNil(t *testing.T) {
	db := newTestDB(t)

	got, err := Resolve(db, Candidate{GhlContactID: "nope", Phone: "5550000000", Email: "nobody@example.com"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != nil {
		t.Fatalf("expected no match, got %+v", got)
	}
}

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"(555) 123-4567", "5551234567"},
		{"+1 555 123 4567", "+15551234567"},
		{"555.123.4567 ext 9", "55512345679"},
		{"", ""},
		{"abc", ""},
	}
	for _, c := range cases {
		if got := NormalizePhone(c.in); got != c.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
