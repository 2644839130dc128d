package sync

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/doctorsstudio/crmsync/internal/db/models"
	"github.com/doctorsstudio/crmsync/internal/ghl"
	"github.com/doctorsstudio/crmsync/internal/woo"
)

// Item processors take one raw record from a remote page and upsert it
// locally. They return ValidationError for malformed records and
// ConflictError for unique-key races; the driver counts either and moves on.

// ProcessGhlContact resolves and merges one GoHighLevel contact.
func ProcessGhlContact(db *gorm.DB, raw json.RawMessage) error {
	var payload ghl.Contact
	if err := json.Unmarshal(raw, &payload); err != nil {
		return &ValidationError{Reason: "unparsable contact payload: " + err.Error()}
	}
	if payload.ID == "" {
		return &ValidationError{Reason: "contact record missing id"}
	}

	existing, err := Resolve(db, Candidate{
		GhlContactID: payload.ID,
		Phone:        payload.Phone,
		Email:        payload.Email,
	})
	if err != nil {
		return err
	}
	_, err = MergeGhlContact(db, existing, &payload, raw)
	return err
}

// ProcessWooCustomer resolves and merges one WooCommerce customer.
func ProcessWooCustomer(db *gorm.DB, raw json.RawMessage) error {
	var payload woo.Customer
	if err := json.Unmarshal(raw, &payload); err != nil {
		return &ValidationError{Reason: "unparsable customer payload: " + err.Error()}
	}
	if payload.ID == 0 {
		return &ValidationError{Reason: "customer record missing id"}
	}

	existing, err := Resolve(db, Candidate{
		WooCustomerID: payload.ID,
		Phone:         payload.Billing.Phone,
		Email:         payload.Email,
	})
	if err != nil {
		return err
	}
	_, err = MergeWooCustomer(db, existing, &payload, raw)
	return err
}

// ProcessWooProduct upserts one catalog product keyed by its Woo id.
func ProcessWooProduct(db *gorm.DB, raw json.RawMessage) error {
	var payload woo.Product
	if err := json.Unmarshal(raw, &payload); err != nil {
		return &ValidationError{Reason: "unparsable product payload: " + err.Error()}
	}
	if payload.ID == 0 {
		return &ValidationError{Reason: "product record missing id"}
	}

	var product models.Product
	err := db.Where("woo_product_id = ?", payload.ID).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		product = models.Product{ID: uuid.NewString(), WooProductID: payload.ID}
	} else if err != nil {
		return err
	}

	product.Name = payload.Name
	product.Description = payload.Description
	product.Price = parsePrice(payload.Price)
	product.RegularPrice = parsePrice(payload.RegularPrice)
	product.SalePrice = parsePrice(payload.SalePrice)
	product.Status = payload.Status
	product.StockStatus = payload.StockStatus
	if payload.StockQuantity != nil {
		product.StockQuantity = *payload.StockQuantity
	}

	categories := make([]string, 0, len(payload.Categories))
	for _, cat := range payload.Categories {
		categories = append(categories, cat.Name)
	}
	images := make([]string, 0, len(payload.Images))
	for _, img := range payload.Images {
		images = append(images, img.Src)
	}
	if b, err := json.Marshal(categories); err == nil {
		product.Categories = string(b)
	}
	if b, err := json.Marshal(images); err == nil {
		product.Images = string(b)
	}

	if err := db.Save(&product).Error; err != nil {
		if isUniqueViolation(err) {
			return &ConflictError{ExternalID: strconv.FormatInt(payload.ID, 10), Err: err}
		}
		return err
	}
	return nil
}

// ProcessWooOrder upserts one order and attaches it to its contact. The
// contact is resolved by Woo customer id, then billing email; if neither
// matches, a contact is created from the billing block so guest checkouts
// still land in the CRM.
func ProcessWooOrder(db *gorm.DB, raw json.RawMessage) error {
	var payload woo.Order
	if err := json.Unmarshal(raw, &payload); err != nil {
		return &ValidationError{Reason: "unparsable order payload: " + err.Error()}
	}
	if payload.ID == 0 {
		return &ValidationError{Reason: "order record missing id"}
	}

	contact, err := Resolve(db, Candidate{
		WooCustomerID: payload.CustomerID,
		Phone:         payload.Billing.Phone,
		Email:         payload.Billing.Email,
	})
	if err != nil {
		return err
	}
	if contact == nil {
		contact, err = contactFromBilling(db, payload.Billing)
		if err != nil {
			return err
		}
	}

	wooOrderID := strconv.FormatInt(payload.ID, 10)
	var order models.Order
	err = db.Where("woo_order_id = ?", wooOrderID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		order = models.Order{ID: uuid.NewString(), WooOrderID: wooOrderID}
	} else if err != nil {
		return err
	}

	order.ContactID = contact.ID
	order.Status = payload.Status
	order.TotalAmount = parsePrice(payload.Total)
	order.OrderDate = parseWooDate(payload.DateCreated)

	if err := db.Save(&order).Error; err != nil {
		if isUniqueViolation(err) {
			return &ConflictError{ExternalID: wooOrderID, Err: err}
		}
		return err
	}
	return nil
}

func contactFromBilling(db *gorm.DB, billing woo.Billing) (*models.Contact, error) {
	contact := &models.Contact{
		ID:              uuid.NewString(),
		FirstName:       billing.FirstName,
		LastName:        billing.LastName,
		Phone:           billing.Phone,
		NormalizedPhone: NormalizePhone(billing.Phone),
		BillingAddress:  billing.Address1,
		BillingCity:     billing.City,
		BillingState:    billing.State,
		BillingPostcode: billing.Postcode,
		PrimarySource:   models.SourceWoo,
	}
	if billing.Email != "" {
		email := billing.Email
		contact.Email = &email
	}
	if err := db.Create(contact).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, &ConflictError{ExternalID: billing.Email, Err: err}
		}
		return nil, err
	}
	return contact, nil
}

func parsePrice(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// parseWooDate handles Woo's timezone-naive timestamps alongside RFC 3339.
func parseWooDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t
	}
	return time.Time{}
}
