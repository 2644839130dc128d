package models

import "time"

// Product mirrors the WooCommerce catalog entry for a store product.
type Product struct {
	ID            string  `gorm:"primaryKey" json:"id"` // UUID
	WooProductID  int64   `gorm:"uniqueIndex" json:"woo_product_id"`
	Name          string  `json:"name"`
	Description   string  `gorm:"type:text" json:"description"`
	Price         float64 `json:"price"`
	RegularPrice  float64 `json:"regular_price"`
	SalePrice     float64 `json:"sale_price"`
	Status        string  `json:"status"`
	StockStatus   string  `json:"stock_status"`
	StockQuantity int     `json:"stock_quantity"`

	// Category names and image URLs, stored as JSON arrays.
	Categories string `gorm:"type:text" json:"categories"`
	Images     string `gorm:"type:text" json:"images"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
