package sync

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/doctorsstudio/crmsync/internal/db/models"
	"github.com/doctorsstudio/crmsync/internal/ghl"
	"github.com/doctorsstudio/crmsync/internal/woo"
)

// The merge policy is an explicit per-source field mapping: a field is only
// written when the external record supplies a value, so one source never
// nulls out data the other source (or the CRM) owns. The primary source is
// the one exception with its own transition rule, see setPrimarySource.

// setPrimarySource applies the upgrade-only rule: a CRM-only contact is
// claimed by the first integration that touches it; an integration-owned
// contact never changes hands, no matter which source is syncing.
func setPrimarySource(contact *models.Contact, source string) {
	if contact.PrimarySource == "" || contact.PrimarySource == models.SourceCrm {
		contact.PrimarySource = source
	}
}

// MergeGhlContact maps a GoHighLevel contact payload onto a local contact,
// creating one when existing is nil. The raw payload and the GHL last-sync
// timestamp are always stamped.
func MergeGhlContact(db *gorm.DB, existing *models.Contact, payload *ghl.Contact, raw json.RawMessage) (*models.Contact, error) {
	contact := existing
	if contact == nil {
		contact = &models.Contact{ID: uuid.NewString(), PrimarySource: models.SourceGhl}
	}

	if payload.FirstName != "" {
		contact.FirstName = payload.FirstName
	}
	if payload.LastName != "" {
		contact.LastName = payload.LastName
	}
	if payload.Phone != "" {
		contact.Phone = payload.Phone
		contact.NormalizedPhone = NormalizePhone(payload.Phone)
	}
	if payload.Email != "" {
		email := payload.Email
		contact.Email = &email
	}
	if payload.Tags != nil {
		if b, err := json.Marshal(payload.Tags); err == nil {
			contact.GhlTags = string(b)
		}
	}
	if payload.CustomFields != nil {
		contact.GhlCustomFields = string(payload.CustomFields)
	}

	ghlID := payload.ID
	contact.GhlContactID = &ghlID
	contact.GhlData = string(raw)
	now := time.Now()
	contact.GhlLastSync = &now
	setPrimarySource(contact, models.SourceGhl)

	if err := db.Save(contact).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, &ConflictError{ExternalID: payload.ID, Err: err}
		}
		return nil, err
	}
	return contact, nil
}

// MergeWooCustomer maps a WooCommerce customer payload onto a local contact,
// creating one when existing is nil.
func MergeWooCustomer(db *gorm.DB, existing *models.Contact, payload *woo.Customer, raw json.RawMessage) (*models.Contact, error) {
	contact := existing
	if contact == nil {
		contact = &models.Contact{ID: uuid.NewString(), PrimarySource: models.SourceWoo}
	}

	if payload.FirstName != "" {
		contact.FirstName = payload.FirstName
	}
	if payload.LastName != "" {
		contact.LastName = payload.LastName
	}
	if payload.Email != "" {
		email := payload.Email
		contact.Email = &email
	}
	if payload.Billing.Phone != "" {
		contact.Phone = payload.Billing.Phone
		contact.NormalizedPhone = NormalizePhone(payload.Billing.Phone)
	}
	if payload.Billing.Address1 != "" {
		contact.BillingAddress = payload.Billing.Address1
	}
	if payload.Billing.City != "" {
		contact.BillingCity = payload.Billing.City
	}
	if payload.Billing.State != "" {
		contact.BillingState = payload.Billing.State
	}
	if payload.Billing.Postcode != "" {
		contact.BillingPostcode = payload.Billing.Postcode
	}

	wooID := payload.ID
	contact.WooCustomerID = &wooID
	contact.WooData = string(raw)
	now := time.Now()
	contact.WooLastSync = &now
	setPrimarySource(contact, models.SourceWoo)

	if err := db.Save(contact).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, &ConflictError{ExternalID: strconv.FormatInt(payload.ID, 10), Err: err}
		}
		return nil, err
	}
	return contact, nil
}
