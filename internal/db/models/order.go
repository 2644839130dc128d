package models

import "time"

// Order belongs to exactly one Contact and is removed with it.
type Order struct {
	ID          string  `gorm:"primaryKey" json:"id"` // UUID
	ContactID   string  `gorm:"index" json:"contact_id"`
	Contact     Contact `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	WooOrderID  string  `gorm:"index" json:"woo_order_id"`
	OrderDate   time.Time `json:"order_date"`
	TotalAmount float64   `json:"total_amount"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
