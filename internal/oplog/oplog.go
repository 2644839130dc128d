// Package oplog writes durable operational events to the SystemLog table.
// The sync engine and OAuth flows are write-only here; the admin surface
// reads the stream for dashboards.
package oplog

import (
	"encoding/json"
	"log"

	"gorm.io/gorm"

	"github.com/doctorsstudio/crmsync/internal/db/models"
)

// Event records a system event. Details must be JSON-serializable; a
// marshal failure falls back to an empty blob rather than dropping the event.
func Event(db *gorm.DB, message, logType, status string, details map[string]any) {
	var blob string
	if details != nil {
		if b, err := json.Marshal(details); err == nil {
			blob = string(b)
		}
	}

	entry := models.SystemLog{
		Type:    logType,
		Message: message,
		Status:  status,
		Details: blob,
	}
	if err := db.Create(&entry).Error; err != nil {
		log.Printf("⚠️ Failed to write system log (%s): %v", message, err)
	}
}

// Info is shorthand for an informational system event.
func Info(db *gorm.DB, message string) {
	Event(db, message, models.LogTypeSystem, models.LogStatusInfo, nil)
}
