package handlers

import (
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/doctorsstudio/crmsync/internal/db/models"
)

// DashboardHandler returns aggregate counts across the synced data set plus
// the state of any running syncs. Used by the admin frontend's landing page.
func DashboardHandler(db *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			contacts     int64
			wooContacts  int64
			ghlContacts  int64
			orders       int64
			products     int64
			appointments int64
		)
		db.Model(&models.Contact{}).Count(&contacts)
		db.Model(&models.Contact{}).Where("woo_customer_id IS NOT NULL").Count(&wooContacts)
		db.Model(&models.Contact{}).Where("ghl_contact_id IS NOT NULL").Count(&ghlContacts)
		db.Model(&models.Order{}).Count(&orders)
		db.Model(&models.Product{}).Count(&products)
		db.Model(&models.Appointment{}).Count(&appointments)

		var running []models.SyncState
		db.Where("is_complete = ?", false).Find(&running)

		var recent []models.SystemLog
		db.Order("timestamp DESC").Limit(10).Find(&recent)

		writeJSON(w, http.StatusOK, map[string]any{
			"generated_at": time.Now().UTC(),
			"contacts": map[string]int64{
				"total":            contacts,
				"with_woocommerce": wooContacts,
				"with_ghl":         ghlContacts,
			},
			"orders":        orders,
			"products":      products,
			"appointments":  appointments,
			"running_syncs": running,
			"recent_events": recent,
		})
	}
}
