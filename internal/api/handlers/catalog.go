package handlers

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/doctorsstudio/crmsync/internal/db/models"
)

// OrdersHandler lists orders with pagination and search on order id/status.
func OrdersHandler(db *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, pageSize := pageParams(r)

		query := db.Model(&models.Order{})
		if search := r.URL.Query().Get("search"); search != "" {
			like := "%" + search + "%"
			query = query.Where("woo_order_id LIKE ? OR status LIKE ?", like, like)
		}

		var count int64
		query.Count(&count)

		var orders []models.Order
		if err := query.Order("order_date DESC").
			Offset((page - 1) * pageSize).Limit(pageSize).
			Find(&orders).Error; err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, listResponse{
			Count: count, Page: page, PageSize: pageSize, Results: orders,
		})
	}
}

// ProductsHandler lists products with pagination and search on
// name/description/categories.
func ProductsHandler(db *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, pageSize := pageParams(r)

		query := db.Model(&models.Product{})
		if search := r.URL.Query().Get("search"); search != "" {
			like := "%" + search + "%"
			query = query.Where("name LIKE ? OR description LIKE ? OR categories LIKE ?", like, like, like)
		}

		var count int64
		query.Count(&count)

		var products []models.Product
		if err := query.Order("name").
			Offset((page - 1) * pageSize).Limit(pageSize).
			Find(&products).Error; err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, listResponse{
			Count: count, Page: page, PageSize: pageSize, Results: products,
		})
	}
}
