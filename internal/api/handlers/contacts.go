package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/doctorsstudio/crmsync/internal/db/models"
)

// ContactsHandler lists contacts with pagination and free-text search
// across names, email and phone.
func ContactsHandler(db *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, pageSize := pageParams(r)

		query := db.Model(&models.Contact{})
		if search := r.URL.Query().Get("search"); search != "" {
			like := "%" + search + "%"
			query = query.Where(
				"first_name LIKE ? OR last_name LIKE ? OR email LIKE ? OR phone LIKE ?",
				like, like, like, like,
			)
		}

		var count int64
		query.Count(&count)

		var contacts []models.Contact
		if err := query.Order("last_name, first_name").
			Offset((page - 1) * pageSize).Limit(pageSize).
			Find(&contacts).Error; err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, listResponse{
			Count: count, Page: page, PageSize: pageSize, Results: contacts,
		})
	}
}

// ContactDetailHandler returns one contact with its orders and appointments.
func ContactDetailHandler(db *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var contact models.Contact
		if err := db.First(&contact, "id = ?", id).Error; err != nil {
			writeError(w, http.StatusNotFound, "contact not found")
			return
		}

		var orders []models.Order
		db.Where("contact_id = ?", contact.ID).Order("order_date DESC").Find(&orders)

		var appointments []models.Appointment
		db.Where("contact_id = ?", contact.ID).Order("start_time DESC").Find(&appointments)

		writeJSON(w, http.StatusOK, map[string]any{
			"contact":      contact,
			"orders":       orders,
			"appointments": appointments,
		})
	}
}
