package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/doctorsstudio/crmsync/internal/config"
	"github.com/doctorsstudio/crmsync/internal/db/models"
	"github.com/doctorsstudio/crmsync/internal/oplog"
	"github.com/doctorsstudio/crmsync/internal/util"
)

// progressLogInterval is how often (in pages) a progress event is written.
const progressLogInterval = 5

// maxFetchAttempts bounds page-fetch retries before a run is terminated.
const maxFetchAttempts = 3

// Page is one page of a remote listing.
type Page struct {
	Items      []json.RawMessage
	Total      int
	TotalPages int
}

// FetchOptions carries the paging parameters a Fetcher needs.
type FetchOptions struct {
	PageSize      int
	ModifiedAfter *time.Time
}

// Fetcher retrieves one page of a remote listing. Implementations wrap the
// GHL or Woo client plus token acquisition; a missing credential surfaces
// as a FatalError, anything network-shaped as a plain error (retried).
type Fetcher func(ctx context.Context, page int, opts FetchOptions) (*Page, error)

// Processor upserts one raw item from a page.
type Processor func(item json.RawMessage) error

// StopFlag is the cooperative cancellation signal, polled before each page
// and each item. In-flight HTTP calls are not interrupted.
type StopFlag struct {
	stopped atomic.Bool
}

// Stop requests cancellation.
func (s *StopFlag) Stop() { s.stopped.Store(true) }

// Stopped reports whether cancellation was requested. Safe on a nil flag.
func (s *StopFlag) Stopped() bool { return s != nil && s.stopped.Load() }

// Options tune one sync run.
type Options struct {
	// StartPage is the first page to fetch; 0 resumes from the checkpoint.
	StartPage int
	// MaxPages caps pages processed in this invocation (0 = unlimited).
	MaxPages int
	// ModifiedAfter switches the run to incremental mode.
	ModifiedAfter *time.Time
	// Stop is polled for cooperative cancellation.
	Stop *StopFlag
}

// Result is what a finished run reports, whatever way it ended.
type Result struct {
	SuccessCount int    `json:"success_count"`
	ErrorCount   int    `json:"error_count"`
	LastPage     int    `json:"last_page"`
	Message      string `json:"message"`
}

// Driver walks a remote paginated listing page by page, applying a
// Processor to every item and checkpointing after each page so an
// interrupted run resumes where it left off.
type Driver struct {
	db      *gorm.DB
	tracker *Tracker
	cfg     config.Sync
}

// NewDriver creates a driver with the given sync tunables.
func NewDriver(db *gorm.DB, cfg config.Sync) *Driver {
	return &Driver{db: db, tracker: NewTracker(db), cfg: cfg}
}

// Tracker exposes the driver's state tracker to the caller layer.
func (d *Driver) Tracker() *Tracker { return d.tracker }

// Run executes one sync run for (syncType, locationID).
//
// Termination paths: normal completion, cooperative stop, max-pages reached,
// or an unrecoverable fetch failure. Every path marks the state row complete
// with counts reflecting exactly what was processed; per-item failures never
// abort a page, and a failed page fetch after retries ends the run with the
// checkpoint still pointing at the last fully processed page.
func (d *Driver) Run(ctx context.Context, syncType, locationID string, fetch Fetcher, process Processor, opts Options) (Result, error) {
	var res Result

	state, err := d.tracker.Start(syncType, locationID)
	if err != nil {
		return res, err
	}

	startPage := opts.StartPage
	if startPage <= 0 {
		startPage = state.LastPageProcessed + 1
	}
	res.LastPage = startPage - 1

	sessionID := uuid.NewString()
	oplog.Event(d.db, fmt.Sprintf("Starting %s sync session %s from page %d", syncType, sessionID, startPage),
		models.LogTypeSync, models.LogStatusInProgress, map[string]any{
			"sync_id":     sessionID,
			"location_id": locationID,
			"start_page":  startPage,
			"max_pages":   opts.MaxPages,
			"incremental": opts.ModifiedAfter != nil,
		})

	fetchOpts := FetchOptions{PageSize: d.cfg.PageSize, ModifiedAfter: opts.ModifiedAfter}
	pagesProcessed := 0

	for page := startPage; ; page++ {
		if stopRequested(ctx, opts.Stop) {
			return d.finishStopped(state, sessionID, &res)
		}

		if page%progressLogInterval == 0 {
			oplog.Event(d.db, fmt.Sprintf("Syncing %s - processing page %d", syncType, page),
				models.LogTypeSync, models.LogStatusInProgress, map[string]any{
					"sync_id":       sessionID,
					"page":          page,
					"success_count": res.SuccessCount,
					"error_count":   res.ErrorCount,
				})
		}

		pageData, err := d.fetchWithRetry(ctx, syncType, page, fetch, fetchOpts, sessionID)
		if err != nil {
			var fatal *FatalError
			if errors.As(err, &fatal) {
				res.Message = fmt.Sprintf("Sync aborted: %v", fatal.Err)
				oplog.Event(d.db, fmt.Sprintf("%s sync aborted: %v", syncType, fatal.Err),
					models.LogTypeSync, models.LogStatusError, map[string]any{
						"sync_id": sessionID, "location_id": locationID,
					})
				_ = d.tracker.Complete(state)
				return res, err
			}

			res.Message = fmt.Sprintf("Giving up on page %d after %d attempts", page, maxFetchAttempts)
			oplog.Event(d.db, fmt.Sprintf("%s sync stopped: failed to fetch page %d", syncType, page),
				models.LogTypeSync, models.LogStatusError, map[string]any{
					"sync_id": sessionID, "page": page, "error": err.Error(),
				})
			_ = d.tracker.Complete(state)
			return res, &TransportError{Op: fmt.Sprintf("fetch %s page %d", syncType, page), Err: err}
		}

		if len(pageData.Items) == 0 {
			res.Message = fmt.Sprintf("Completed %s sync: no more records", syncType)
			return d.finishComplete(state, sessionID, syncType, &res)
		}

		if state.TotalPages == nil {
			if total := totalPages(pageData, d.cfg.PageSize); total > 0 {
				_ = d.tracker.SetTotalPages(state, total)
			}
		}

		pageSuccess, pageErrors, stopped := d.processPage(ctx, syncType, locationID, page, pageData.Items, process, opts.Stop, sessionID)
		res.SuccessCount += pageSuccess
		res.ErrorCount += pageErrors

		if stopped {
			// The page was not fully processed: keep the checkpoint on the
			// previous page so the resumed run replays this one.
			_ = d.tracker.Checkpoint(state, page-1, pageSuccess, pageErrors)
			return d.finishStopped(state, sessionID, &res)
		}

		if err := d.tracker.Checkpoint(state, page, pageSuccess, pageErrors); err != nil {
			log.Printf("⚠️ Failed to checkpoint %s sync at page %d: %v", syncType, page, err)
		}
		res.LastPage = page
		pagesProcessed++

		if !hasMore(pageData, page, d.cfg.PageSize) {
			res.Message = fmt.Sprintf("Completed %s sync", syncType)
			return d.finishComplete(state, sessionID, syncType, &res)
		}
		if opts.MaxPages > 0 && pagesProcessed >= opts.MaxPages {
			res.Message = fmt.Sprintf("Reached maximum of %d pages", opts.MaxPages)
			return d.finishComplete(state, sessionID, syncType, &res)
		}

		// Inter-page delay to respect remote rate limits.
		sleepCtx(ctx, d.cfg.PageDelay)
	}
}

// processPage walks a page's items in sub-batches, isolating per-item
// failures. Returns the counts and whether a stop was requested mid-page.
func (d *Driver) processPage(ctx context.Context, syncType, locationID string, page int, items []json.RawMessage, process Processor, stop *StopFlag, sessionID string) (successCount, errorCount int, stopped bool) {
	batchSize := d.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 20
	}

	for start := 0; start < len(items); start += batchSize {
		end := start + batchSize
		if end > len(items) {
			end = len(items)
		}
		for _, item := range items[start:end] {
			if stopRequested(ctx, stop) {
				return successCount, errorCount, true
			}
			if err := process(item); err != nil {
				errorCount++
				d.logItemError(syncType, locationID, page, sessionID, err)
				continue
			}
			successCount++
		}
		if end < len(items) {
			sleepCtx(ctx, d.cfg.BatchDelay)
		}
	}
	return successCount, errorCount, false
}

func (d *Driver) logItemError(syncType, locationID string, page int, sessionID string, err error) {
	details := map[string]any{
		"sync_id":     sessionID,
		"location_id": locationID,
		"page":        page,
		"error":       err.Error(),
	}
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		details["external_id"] = conflict.ExternalID
	}
	oplog.Event(d.db, fmt.Sprintf("Error syncing %s record: %v", syncType, err),
		models.LogTypeSync, models.LogStatusError, details)
}

// fetchWithRetry attempts a page fetch up to maxFetchAttempts times with
// linearly increasing backoff. Fatal errors are never retried.
func (d *Driver) fetchWithRetry(ctx context.Context, syncType string, page int, fetch Fetcher, opts FetchOptions, sessionID string) (*Page, error) {
	var lastErr error
	for attempt := 1; attempt <= maxFetchAttempts; attempt++ {
		pageData, err := fetch(ctx, page, opts)
		if err == nil {
			return pageData, nil
		}
		lastErr = err

		var fatal *FatalError
		if errors.As(err, &fatal) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, err
		}

		if attempt < maxFetchAttempts {
			delay := d.cfg.RetryBaseDelay * time.Duration(attempt)
			var rateLimited *util.RateLimitError
			if errors.As(err, &rateLimited) && rateLimited.RetryAfter > delay {
				delay = rateLimited.RetryAfter
			}
			log.Printf("⚠️ Retrying %s page %d (attempt %d/%d): %v", syncType, page, attempt, maxFetchAttempts, err)
			sleepCtx(ctx, delay)
		}
	}
	return nil, lastErr
}

func (d *Driver) finishComplete(state *models.SyncState, sessionID, syncType string, res *Result) (Result, error) {
	if err := d.tracker.Complete(state); err != nil {
		log.Printf("⚠️ Failed to mark %s sync complete: %v", syncType, err)
	}
	oplog.Event(d.db, fmt.Sprintf("Completed sync session %s", sessionID),
		models.LogTypeSync, models.LogStatusSuccess, map[string]any{
			"sync_id":       sessionID,
			"last_page":     res.LastPage,
			"success_count": res.SuccessCount,
			"error_count":   res.ErrorCount,
		})
	return *res, nil
}

func (d *Driver) finishStopped(state *models.SyncState, sessionID string, res *Result) (Result, error) {
	res.Message = "Sync stopped by user"
	if err := d.tracker.Cancel(state); err != nil {
		log.Printf("⚠️ Failed to mark cancelled sync complete: %v", err)
	}
	oplog.Event(d.db, fmt.Sprintf("Sync session %s stopped by user", sessionID),
		models.LogTypeSync, models.LogStatusWarning, map[string]any{
			"sync_id":       sessionID,
			"success_count": res.SuccessCount,
			"error_count":   res.ErrorCount,
		})
	return *res, nil
}

// totalPages derives the remote page count from whichever hint the API
// provides: an explicit page count (Woo headers) or a record total (GHL).
func totalPages(p *Page, pageSize int) int {
	if p.TotalPages > 0 {
		return p.TotalPages
	}
	if p.Total > 0 && pageSize > 0 {
		return (p.Total + pageSize - 1) / pageSize
	}
	return 0
}

// hasMore reports whether pages remain after the given one.
func hasMore(p *Page, page, pageSize int) bool {
	if p.TotalPages > 0 {
		return page < p.TotalPages
	}
	if p.Total > 0 && pageSize > 0 {
		return page*pageSize < p.Total
	}
	// No totals from the remote: keep going until an empty page.
	return true
}

func stopRequested(ctx context.Context, stop *StopFlag) bool {
	return stop.Stopped() || ctx.Err() != nil
}

// sleepCtx sleeps for d unless the context is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
