package sync

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/doctorsstudio/crmsync/internal/db/models"
)

// Tracker persists sync checkpoints. One row exists per (sync type,
// location) pair; the row, not process memory, is the source of truth for
// run progress and for "is a sync already running".
type Tracker struct {
	db *gorm.DB
}

// NewTracker creates a tracker backed by the given database.
func NewTracker(db *gorm.DB) *Tracker {
	return &Tracker{db: db}
}

// Find returns the state row for a pair, or nil when none exists.
func (t *Tracker) Find(syncType, locationID string) (*models.SyncState, error) {
	var state models.SyncState
	err := t.db.Where("sync_type = ? AND location_id = ?", syncType, locationID).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// FindByID returns a state row by primary key, or nil.
func (t *Tracker) FindByID(id string) (*models.SyncState, error) {
	var state models.SyncState
	err := t.db.First(&state, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// List returns all state rows, most recently synced first.
func (t *Tracker) List() ([]models.SyncState, error) {
	var states []models.SyncState
	if err := t.db.Order("last_sync_time DESC").Find(&states).Error; err != nil {
		return nil, err
	}
	return states, nil
}

// Start returns the checkpoint row for a run. It is idempotent: an existing
// incomplete row is returned as-is so an interrupted run can resume from its
// last page; a completed row is reset for a fresh run; otherwise a new row
// is created.
func (t *Tracker) Start(syncType, locationID string) (*models.SyncState, error) {
	state, err := t.Find(syncType, locationID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = &models.SyncState{
			ID:         uuid.NewString(),
			SyncType:   syncType,
			LocationID: locationID,
		}
		if err := t.db.Create(state).Error; err != nil {
			return nil, err
		}
		return state, nil
	}
	if !state.IsComplete {
		return state, nil
	}

	state.LastPageProcessed = 0
	state.TotalPages = nil
	state.SuccessCount = 0
	state.ErrorCount = 0
	state.IsComplete = false
	if err := t.db.Save(state).Error; err != nil {
		return nil, err
	}
	return state, nil
}

// Checkpoint records progress after a page: the page number, count deltas
// and the sync timestamp. Called after every page so a crash leaves a
// resumable cursor.
func (t *Tracker) Checkpoint(state *models.SyncState, lastPage, successDelta, errorDelta int) error {
	now := time.Now()
	state.LastPageProcessed = lastPage
	state.SuccessCount += successDelta
	state.ErrorCount += errorDelta
	state.LastSyncTime = &now
	return t.db.Save(state).Error
}

// SetTotalPages records the remote page count once known.
func (t *Tracker) SetTotalPages(state *models.SyncState, totalPages int) error {
	state.TotalPages = &totalPages
	return t.db.Save(state).Error
}

// Complete marks the run finished. All terminal paths (success, stop,
// max-pages, terminal failure) end here so no row is left running forever.
func (t *Tracker) Complete(state *models.SyncState) error {
	now := time.Now()
	state.IsComplete = true
	state.LastSyncTime = &now
	return t.db.Save(state).Error
}

// Cancel marks a cooperatively stopped run finished with partial counts.
func (t *Tracker) Cancel(state *models.SyncState) error {
	return t.Complete(state)
}
