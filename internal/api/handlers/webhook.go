package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/doctorsstudio/crmsync/internal/webhook"
)

const maxWebhookBody = 1 << 20 // 1 MiB

// AppointmentWebhookHandler accepts appointment webhooks. The raw body is
// persisted before processing, so the endpoint answers 200 for payloads it
// could log but not understand; only a storage failure yields a 5xx, which
// tells the sender to retry.
func AppointmentWebhookHandler(db *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read request body")
			return
		}

		headers := make(map[string]string, len(r.Header))
		for name, values := range r.Header {
			headers[name] = strings.Join(values, ", ")
		}

		appointment, err := webhook.ProcessAppointment(db, "ghl", headers, body)
		if err != nil {
			if errors.Is(err, webhook.ErrLogWrite) {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"status": "logged",
				"error":  err.Error(),
			})
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"status":         "success",
			"appointment_id": appointment.ID,
		})
	}
}
