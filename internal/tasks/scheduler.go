// Package tasks runs the background maintenance jobs: the token refresh
// sweep and the nightly incremental contact sync.
package tasks

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/doctorsstudio/crmsync/internal/auth/token"
	"github.com/doctorsstudio/crmsync/internal/db/models"
	"github.com/doctorsstudio/crmsync/internal/oplog"
	"github.com/doctorsstudio/crmsync/internal/sync"
)

// sweepHorizon is how far ahead of actual expiry the sweep refreshes.
// Wider than the on-demand buffer so scheduled refreshes happen before
// any request would be forced to refresh inline.
const sweepHorizon = 30 * time.Minute

// Scheduler owns the cron instance and the jobs it drives.
type Scheduler struct {
	db     *gorm.DB
	cron   *cron.Cron
	store  *token.Store
	tokens *token.Refresher
	runner *sync.Runner
}

func NewScheduler(db *gorm.DB, store *token.Store, tokens *token.Refresher, runner *sync.Runner) *Scheduler {
	return &Scheduler{
		db:     db,
		cron:   cron.New(),
		store:  store,
		tokens: tokens,
		runner: runner,
	}
}

// Start registers the jobs and launches the cron loop. The token sweep
// runs every 30 minutes; the incremental contact sync runs nightly at
// 03:00 server time, outside business hours.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc("*/30 * * * *", func() { s.RefreshExpiringTokens(ctx) }); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 3 * * *", func() { s.RunIncrementalSyncs(ctx) }); err != nil {
		return err
	}
	s.cron.Start()
	log.Printf("⏰ Scheduler started (token sweep every 30m, nightly sync at 03:00)")
	return nil
}

// Stop halts the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RefreshExpiringTokens refreshes every stored token that expires within
// the sweep horizon. Refresh failures are logged per token and do not
// abort the sweep.
func (s *Scheduler) RefreshExpiringTokens(ctx context.Context) {
	expiring, err := s.store.ExpiringBefore(time.Now().Add(sweepHorizon))
	if err != nil {
		log.Printf("❌ Token sweep query failed: %v", err)
		return
	}
	if len(expiring) == 0 {
		return
	}

	log.Printf("🎫 Token sweep: %d token(s) expiring within %s", len(expiring), sweepHorizon)
	refreshed := 0
	for i := range expiring {
		tok := expiring[i]
		updated, err := s.tokens.Refresh(ctx, &tok)
		if err != nil {
			log.Printf("❌ Token sweep: refresh failed for location %s: %v", tok.LocationID, err)
			continue
		}
		if !updated.IsExpired() {
			refreshed++
		}
	}

	oplog.Event(s.db, "Scheduled token sweep finished", models.LogTypeOAuth, models.LogStatusInfo, map[string]any{
		"expiring":  len(expiring),
		"refreshed": refreshed,
	})
}

// RunIncrementalSyncs enqueues a contact sync per connected account,
// fetching only contacts modified since the newest synced record.
func (s *Scheduler) RunIncrementalSyncs(ctx context.Context) {
	tokens, err := s.store.List()
	if err != nil {
		log.Printf("❌ Incremental sync: token listing failed: %v", err)
		return
	}

	since, err := s.runner.LastGhlSyncTime()
	if err != nil {
		log.Printf("⚠️ Incremental sync: could not determine last sync time: %v", err)
	}
	var modifiedAfter *time.Time
	if !since.IsZero() {
		modifiedAfter = &since
	}

	for _, tok := range tokens {
		stateID, err := s.runner.Enqueue(sync.Request{
			SyncType:   models.SyncTypeGhlContacts,
			LocationID: tok.LocationID,
			Options:    sync.Options{ModifiedAfter: modifiedAfter},
		})
		if err != nil {
			log.Printf("⚠️ Incremental sync skipped for location %s: %v", tok.LocationID, err)
			continue
		}
		log.Printf("🔄 Incremental contact sync enqueued for location %s (state %s)", tok.LocationID, stateID)
	}
}
