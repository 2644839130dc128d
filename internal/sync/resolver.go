package sync

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/doctorsstudio/crmsync/internal/db/models"
)

// Candidate carries the identifying fields of an incoming external record.
// Zero values mean "absent".
type Candidate struct {
	GhlContactID  string
	WooCustomerID int64
	Phone         string
	Email         string
}

// Resolve finds the best-matching local contact for a candidate.
//
// The precedence is strict and deliberate: a source-specific external id is
// the most trustworthy, then the normalized phone, then the email. Email is
// last because shared family addresses make it the least reliable. The first
// match wins; there is no merging of multiple partial matches. A nil contact
// with a nil error means no match, signalling the caller to create one.
func Resolve(db *gorm.DB, c Candidate) (*models.Contact, error) {
	if c.GhlContactID != "" {
		contact, err := findContact(db, "ghl_contact_id = ?", c.GhlContactID)
		if err != nil || contact != nil {
			return contact, err
		}
	}
	if c.WooCustomerID != 0 {
		contact, err := findContact(db, "woo_customer_id = ?", c.WooCustomerID)
		if err != nil || contact != nil {
			return contact, err
		}
	}
	if phone := NormalizePhone(c.Phone); phone != "" {
		contact, err := findContact(db, "normalized_phone = ?", phone)
		if err != nil || contact != nil {
			return contact, err
		}
	}
	if c.Email != "" {
		contact, err := findContact(db, "LOWER(email) = ?", strings.ToLower(c.Email))
		if err != nil || contact != nil {
			return contact, err
		}
	}
	return nil, nil
}

func findContact(db *gorm.DB, query string, arg any) (*models.Contact, error) {
	var contact models.Contact
	err := db.Where(query, arg).First(&contact).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

// NormalizePhone reduces a phone number to its digits (with a leading +
// preserved) so differently formatted numbers compare equal.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for i, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}
	return b.String()
}
