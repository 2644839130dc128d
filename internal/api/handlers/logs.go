package handlers

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/doctorsstudio/crmsync/internal/db/models"
)

// SystemLogsHandler lists operational events, newest first, optionally
// filtered by type and status.
func SystemLogsHandler(db *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, pageSize := pageParams(r)

		query := db.Model(&models.SystemLog{})
		if logType := r.URL.Query().Get("type"); logType != "" {
			query = query.Where("type = ?", logType)
		}
		if status := r.URL.Query().Get("status"); status != "" {
			query = query.Where("status = ?", status)
		}

		var count int64
		query.Count(&count)

		var logs []models.SystemLog
		if err := query.Order("timestamp DESC").
			Offset((page - 1) * pageSize).Limit(pageSize).
			Find(&logs).Error; err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, listResponse{
			Count: count, Page: page, PageSize: pageSize, Results: logs,
		})
	}
}

// TokenLogsHandler lists token exchange/refresh audit rows, newest first.
func TokenLogsHandler(db *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, pageSize := pageParams(r)

		var count int64
		db.Model(&models.TokenRequestLog{}).Count(&count)

		var logs []models.TokenRequestLog
		if err := db.Order("created_at DESC").
			Offset((page - 1) * pageSize).Limit(pageSize).
			Find(&logs).Error; err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, listResponse{
			Count: count, Page: page, PageSize: pageSize, Results: logs,
		})
	}
}
