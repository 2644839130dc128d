// Package webhook ingests appointment webhooks: the raw payload is logged
// verbatim first, then mapped to an Appointment using the same contact
// identity order the sync engine uses (external id, then phone, then email).
package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/doctorsstudio/crmsync/internal/db/models"
	"github.com/doctorsstudio/crmsync/internal/sync"
)

// payload is the appointment webhook body shape sent by GoHighLevel.
// The misspelled appoinmentStatus key is what the remote actually sends.
type payload struct {
	ContactID string `json:"contact_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Calendar  struct {
		AppointmentID     string `json:"appointmentId"`
		Title             string `json:"title"`
		StartTime         string `json:"startTime"`
		EndTime           string `json:"endTime"`
		AppoinmentStatus  string `json:"appoinmentStatus"`
		Status            string `json:"status"`
		CalendarName      string `json:"calendarName"`
		Address           string `json:"address"`
		Notes             string `json:"notes"`
	} `json:"calendar"`
	User struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	} `json:"user"`
}

// ErrLogWrite wraps a failure to persist the webhook log row itself. Callers
// should report these as server errors so the sender retries; every other
// failure mode is already captured in the log and safe to acknowledge.
var ErrLogWrite = errors.New("webhook log write failed")

// ProcessAppointment logs and processes one inbound appointment webhook.
// The webhook log row is written before any parsing so malformed payloads
// are still captured for replay; its status records the outcome.
func ProcessAppointment(db *gorm.DB, source string, headers map[string]string, body []byte) (*models.Appointment, error) {
	headerBlob, _ := json.Marshal(headers)
	whLog := models.AppointmentWebhookLog{
		ID:      uuid.NewString(),
		Source:  source,
		Headers: string(headerBlob),
		Payload: string(body),
		Status:  models.WebhookStatusPending,
	}
	if err := db.Create(&whLog).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLogWrite, err)
	}

	appointment, err := process(db, source, body)
	if err != nil {
		whLog.Status = models.WebhookStatusError
		whLog.ErrorMessage = err.Error()
		whLog.Processed = true
		if saveErr := db.Save(&whLog).Error; saveErr != nil {
			log.Printf("⚠️ Failed to update webhook log: %v", saveErr)
		}
		return nil, err
	}

	whLog.Status = models.WebhookStatusSuccess
	whLog.Processed = true
	whLog.CreatedAppointmentID = &appointment.ID
	if saveErr := db.Save(&whLog).Error; saveErr != nil {
		log.Printf("⚠️ Failed to update webhook log: %v", saveErr)
	}
	return appointment, nil
}

func process(db *gorm.DB, source string, body []byte) (*models.Appointment, error) {
	var data payload
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("unparsable webhook payload: %w", err)
	}
	if data.Calendar.Title == "" && data.Calendar.AppointmentID == "" {
		return nil, fmt.Errorf("webhook payload has no appointment data")
	}

	contact, err := sync.Resolve(db, sync.Candidate{
		GhlContactID: data.ContactID,
		Phone:        data.Phone,
		Email:        data.Email,
	})
	if err != nil {
		return nil, err
	}
	if contact != nil {
		log.Printf("📎 Webhook matched existing contact %s", contact.FullName())
	}

	startTime, err := parseTime(data.Calendar.StartTime)
	if err != nil {
		return nil, fmt.Errorf("invalid startTime: %w", err)
	}
	endTime, err := parseTime(data.Calendar.EndTime)
	if err != nil {
		return nil, fmt.Errorf("invalid endTime: %w", err)
	}

	status := data.Calendar.AppoinmentStatus
	if status == "" {
		status = data.Calendar.Status
	}

	var appointment models.Appointment
	found := false
	if data.Calendar.AppointmentID != "" {
		err := db.Where("external_id = ?", data.Calendar.AppointmentID).First(&appointment).Error
		switch {
		case err == nil:
			found = true
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, err
		}
	}
	if !found {
		appointment = models.Appointment{ID: uuid.NewString()}
		if data.Calendar.AppointmentID != "" {
			externalID := data.Calendar.AppointmentID
			appointment.ExternalID = &externalID
		}
	}

	appointment.Title = data.Calendar.Title
	appointment.StartTime = startTime
	appointment.EndTime = endTime
	if status != "" {
		appointment.Status = status
	}
	appointment.Notes = data.Calendar.Notes
	appointment.Location = data.Calendar.Address
	appointment.Provider = strings.TrimSpace(data.User.FirstName + " " + data.User.LastName)
	appointment.Service = data.Calendar.CalendarName
	appointment.Source = source
	appointment.RawData = string(body)
	if contact != nil {
		appointment.ContactID = &contact.ID
	}

	if err := db.Save(&appointment).Error; err != nil {
		return nil, err
	}
	return &appointment, nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("missing timestamp")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05", s)
}
