package models

import "time"

// Appointment stores calendar bookings received from webhooks, linked to a
// Contact when the payload matches one.
type Appointment struct {
	ID         string   `gorm:"primaryKey" json:"id"` // UUID
	ExternalID *string  `gorm:"index" json:"external_id,omitempty"`
	ContactID  *string  `gorm:"index" json:"contact_id,omitempty"`
	Contact    *Contact `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Title      string   `json:"title"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Status     string    `gorm:"default:scheduled" json:"status"`
	Notes      string    `gorm:"type:text" json:"notes,omitempty"`
	Location   string    `json:"location,omitempty"`
	Provider   string    `json:"provider,omitempty"`
	Service    string    `json:"service,omitempty"`
	Source     string    `gorm:"default:webhook" json:"source"`
	RawData    string    `gorm:"type:text" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Webhook log statuses.
const (
	WebhookStatusPending = "pending"
	WebhookStatusSuccess = "success"
	WebhookStatusError   = "error"
)

// AppointmentWebhookLog records every inbound appointment webhook verbatim
// before any processing, so failed payloads can be replayed.
type AppointmentWebhookLog struct {
	ID                   string  `gorm:"primaryKey" json:"id"` // UUID
	Source               string  `json:"source"`
	Headers              string  `gorm:"type:text" json:"headers"`
	Payload              string  `gorm:"type:text" json:"payload"`
	Status               string  `gorm:"default:pending" json:"status"`
	ErrorMessage         string  `gorm:"type:text" json:"error_message,omitempty"`
	Processed            bool    `json:"processed"`
	CreatedAppointmentID *string `gorm:"index" json:"created_appointment_id,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
}
