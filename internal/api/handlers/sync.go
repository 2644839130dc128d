package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/doctorsstudio/crmsync/internal/sync"
)

// startSyncRequest is the body for POST /api/sync.
type startSyncRequest struct {
	Type          string `json:"type"`
	LocationID    string `json:"location_id"`
	StartPage     int    `json:"start_page"`
	MaxPages      int    `json:"max_pages"`
	ModifiedAfter string `json:"modified_after"` // RFC 3339, optional
}

// StartSyncHandler enqueues a sync run and returns its state id for polling.
// A run already in flight for the same (type, account) pair is a conflict.
func StartSyncHandler(runner *sync.Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req startSyncRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Type == "" {
			writeError(w, http.StatusBadRequest, "type is required")
			return
		}

		opts := sync.Options{StartPage: req.StartPage, MaxPages: req.MaxPages}
		if req.ModifiedAfter != "" {
			t, err := time.Parse(time.RFC3339, req.ModifiedAfter)
			if err != nil {
				writeError(w, http.StatusBadRequest, "modified_after must be RFC 3339")
				return
			}
			opts.ModifiedAfter = &t
		}

		stateID, err := runner.Enqueue(sync.Request{
			SyncType:   req.Type,
			LocationID: req.LocationID,
			Options:    opts,
		})
		if err != nil {
			status := http.StatusConflict
			if errors.Is(err, sync.ErrUnknownSyncType) {
				status = http.StatusBadRequest
			}
			writeError(w, status, err.Error())
			return
		}

		writeJSON(w, http.StatusAccepted, map[string]string{
			"state_id": stateID,
			"message":  "Sync started",
		})
	}
}

// SyncStatesHandler lists all sync checkpoints for the dashboard.
func SyncStatesHandler(tracker *sync.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		states, err := tracker.List()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, states)
	}
}

// SyncStateHandler returns the checkpoint for one (type, account) pair.
func SyncStateHandler(tracker *sync.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		syncType := chi.URLParam(r, "type")
		locationID := r.URL.Query().Get("location_id")

		state, err := tracker.Find(syncType, locationID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if state == nil {
			writeError(w, http.StatusNotFound, "no sync state for this pair")
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

// CancelSyncHandler requests cooperative cancellation of a run.
func CancelSyncHandler(runner *sync.Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stateID := chi.URLParam(r, "id")
		if err := runner.Cancel(stateID); err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Stop requested"})
	}
}
