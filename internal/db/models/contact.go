package models

import (
	"strings"
	"time"
)

// Primary source values for Contact.PrimarySource.
const (
	SourceWoo = "woo"
	SourceGhl = "ghl"
	SourceCrm = "crm"
)

// Contact is the canonical person record unified across CRM, WooCommerce
// and GoHighLevel. External ids are pointers so that absent values stay
// NULL and the unique indexes only apply to linked contacts.
type Contact struct {
	ID              string  `gorm:"primaryKey" json:"id"` // UUID
	WooCustomerID   *int64  `gorm:"uniqueIndex" json:"woo_customer_id,omitempty"`
	GhlContactID    *string `gorm:"uniqueIndex" json:"ghl_contact_id,omitempty"`
	FirstName       string  `json:"first_name"`
	LastName        string  `json:"last_name"`
	Email           *string `gorm:"uniqueIndex" json:"email,omitempty"`
	Phone           string  `json:"phone"`
	NormalizedPhone string  `gorm:"index" json:"normalized_phone"`
	BillingAddress  string  `json:"billing_address"`
	BillingCity     string  `json:"billing_city"`
	BillingState    string  `json:"billing_state"`
	BillingPostcode string  `json:"billing_postcode"`
	PrimarySource   string  `gorm:"default:crm" json:"primary_source"`

	// Raw payload blobs and per-source extras, stored as JSON text.
	WooData         string `gorm:"type:text" json:"-"`
	GhlData         string `gorm:"type:text" json:"-"`
	GhlTags         string `gorm:"type:text" json:"ghl_tags,omitempty"`
	GhlCustomFields string `gorm:"type:text" json:"ghl_custom_fields,omitempty"`

	WooLastSync *time.Time `json:"woo_last_sync,omitempty"`
	GhlLastSync *time.Time `json:"ghl_last_sync,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// HasWoo reports whether this contact is linked to a WooCommerce customer.
func (c *Contact) HasWoo() bool { return c.WooCustomerID != nil }

// HasGhl reports whether this contact is linked to a GoHighLevel contact.
func (c *Contact) HasGhl() bool { return c.GhlContactID != nil }

// FullName returns the display name used in logs and API responses.
func (c *Contact) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}
