package handlers

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/doctorsstudio/crmsync/internal/version"
)

// HealthHandler reports liveness plus build info, checking that the
// database connection is still usable.
func HealthHandler(db *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		code := http.StatusOK
		if sqlDB, err := db.DB(); err != nil || sqlDB.Ping() != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, map[string]string{
			"status":     status,
			"version":    version.Version,
			"commit":     version.Commit,
			"build_time": version.BuildTime,
		})
	}
}
