package models

import "time"

// SystemLog categories.
const (
	LogTypeOAuth   = "oauth"
	LogTypeSync    = "sync"
	LogTypeSystem  = "system"
	LogTypeError   = "error"
	LogTypeWarning = "warning"
	LogTypeInfo    = "info"
)

// SystemLog statuses.
const (
	LogStatusSuccess    = "success"
	LogStatusError      = "error"
	LogStatusWarning    = "warning"
	LogStatusInfo       = "info"
	LogStatusInProgress = "in_progress"
)

// SystemLog is the append-only operational event stream backing the
// monitoring dashboard. The engine only writes, the admin surface only reads.
type SystemLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Timestamp time.Time `gorm:"autoCreateTime;index" json:"timestamp"`
	Type      string    `gorm:"index" json:"type"`
	Message   string    `gorm:"type:text" json:"message"`
	Status    string    `gorm:"default:info" json:"status"`
	Details   string    `gorm:"type:text" json:"details,omitempty"` // JSON blob
}
