package models

import "time"

// Sync types handled by the paginated sync driver.
const (
	SyncTypeGhlContacts  = "ghl_contacts"
	SyncTypeWooCustomers = "woo_customers"
	SyncTypeWooProducts  = "woo_products"
	SyncTypeWooOrders    = "woo_orders"
)

// SyncState is the durable checkpoint for one (sync type, remote account)
// pair. It is the single source of truth for "is a sync already running";
// an incomplete row means a run is in flight or was interrupted and can be
// resumed from LastPageProcessed+1.
type SyncState struct {
	ID                string `gorm:"primaryKey" json:"id"` // UUID
	SyncType          string `gorm:"uniqueIndex:idx_sync_type_location" json:"sync_type"`
	LocationID        string `gorm:"uniqueIndex:idx_sync_type_location" json:"location_id"`
	LastPageProcessed int    `json:"last_page_processed"`
	TotalPages        *int   `json:"total_pages,omitempty"`
	SuccessCount      int    `json:"success_count"`
	ErrorCount        int    `json:"error_count"`
	LastSyncTime      *time.Time `json:"last_sync_time,omitempty"`
	IsComplete        bool       `json:"is_complete"`
}
