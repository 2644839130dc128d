package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	gosync "sync"
	"time"

	"gorm.io/gorm"

	"github.com/doctorsstudio/crmsync/internal/auth/token"
	"github.com/doctorsstudio/crmsync/internal/config"
	"github.com/doctorsstudio/crmsync/internal/db/models"
	"github.com/doctorsstudio/crmsync/internal/ghl"
	"github.com/doctorsstudio/crmsync/internal/woo"
)

// ErrUnknownSyncType marks a request naming a sync type the runner does
// not handle.
var ErrUnknownSyncType = errors.New("unknown sync type")

// Request asks for one sync run.
type Request struct {
	SyncType   string
	LocationID string
	Options    Options
}

type job struct {
	req     Request
	stateID string
}

// Runner is the task queue in front of the driver. Requests are enqueued
// and executed by worker goroutines, so HTTP handlers never block on a
// multi-page sync and run lifecycle (start, cancel, completion) is
// observable through the persisted SyncState row.
type Runner struct {
	db       *gorm.DB
	driver   *Driver
	tokens   *token.Refresher
	ghl      *ghl.Client
	woo      *woo.Client
	jobs     chan job
	mu       gosync.Mutex
	active   map[string]*StopFlag // state ID -> stop flag for running jobs
	byPair   map[string]string    // "syncType/locationID" -> state ID
}

// NewRunner wires the queue. Start must be called before Enqueue.
func NewRunner(db *gorm.DB, cfg config.Sync, tokens *token.Refresher, ghlClient *ghl.Client, wooClient *woo.Client) *Runner {
	return &Runner{
		db:     db,
		driver: NewDriver(db, cfg),
		tokens: tokens,
		ghl:    ghlClient,
		woo:    wooClient,
		jobs:   make(chan job, 16),
		active: make(map[string]*StopFlag),
		byPair: make(map[string]string),
	}
}

// Tracker exposes the underlying state tracker.
func (r *Runner) Tracker() *Tracker { return r.driver.Tracker() }

// Start launches the worker pool. Distinct (sync type, account) pairs may
// run concurrently, one worker each; the same pair is serialized by the
// Enqueue rejection below.
func (r *Runner) Start(ctx context.Context, workers int) {
	if workers <= 0 {
		workers = 2
	}
	for i := 0; i < workers; i++ {
		go r.worker(ctx)
	}
	log.Printf("🔄 Sync runner started with %d workers", workers)
}

// Enqueue validates and queues a sync run, returning the state row id the
// caller can poll. A pair with a run already in flight is rejected.
func (r *Runner) Enqueue(req Request) (string, error) {
	if !validSyncType(req.SyncType) {
		return "", fmt.Errorf("%w: %s", ErrUnknownSyncType, req.SyncType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	pair := req.SyncType + "/" + req.LocationID
	if stateID, running := r.byPair[pair]; running {
		return "", fmt.Errorf("sync already running for %s (state %s)", pair, stateID)
	}

	state, err := r.driver.Tracker().Start(req.SyncType, req.LocationID)
	if err != nil {
		return "", err
	}

	stop := &StopFlag{}
	req.Options.Stop = stop
	r.active[state.ID] = stop
	r.byPair[pair] = state.ID

	select {
	case r.jobs <- job{req: req, stateID: state.ID}:
		return state.ID, nil
	default:
		delete(r.active, state.ID)
		delete(r.byPair, pair)
		return "", fmt.Errorf("sync queue is full")
	}
}

// Cancel requests cooperative cancellation of a run. For a run that is no
// longer in flight but left an incomplete state row (e.g. after a crash),
// the row is closed out so it cannot look running forever.
func (r *Runner) Cancel(stateID string) error {
	r.mu.Lock()
	stop, ok := r.active[stateID]
	r.mu.Unlock()
	if ok {
		stop.Stop()
		return nil
	}

	state, err := r.driver.Tracker().FindByID(stateID)
	if err != nil {
		return err
	}
	if state == nil {
		return fmt.Errorf("no sync state with id %s", stateID)
	}
	if !state.IsComplete {
		return r.driver.Tracker().Cancel(state)
	}
	return nil
}

func (r *Runner) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-r.jobs:
			r.execute(ctx, j)
		}
	}
}

func (r *Runner) execute(ctx context.Context, j job) {
	defer func() {
		r.mu.Lock()
		delete(r.active, j.stateID)
		delete(r.byPair, j.req.SyncType+"/"+j.req.LocationID)
		r.mu.Unlock()
	}()

	fetch, process, err := r.bind(j.req.SyncType, j.req.LocationID)
	if err != nil {
		log.Printf("❌ Cannot run %s sync: %v", j.req.SyncType, err)
		return
	}

	res, err := r.driver.Run(ctx, j.req.SyncType, j.req.LocationID, fetch, process, j.req.Options)
	if err != nil {
		log.Printf("❌ %s sync ended with error: %v (success=%d errors=%d last_page=%d)",
			j.req.SyncType, err, res.SuccessCount, res.ErrorCount, res.LastPage)
		return
	}
	log.Printf("✅ %s sync finished: success=%d errors=%d last_page=%d",
		j.req.SyncType, res.SuccessCount, res.ErrorCount, res.LastPage)
}

// bind maps a sync type to its fetcher/processor pair.
func (r *Runner) bind(syncType, locationID string) (Fetcher, Processor, error) {
	switch syncType {
	case models.SyncTypeGhlContacts:
		return r.ghlContactsFetcher(locationID), func(item json.RawMessage) error {
			return ProcessGhlContact(r.db, item)
		}, nil
	case models.SyncTypeWooCustomers:
		return r.wooFetcher(r.woo.GetCustomers), func(item json.RawMessage) error {
			return ProcessWooCustomer(r.db, item)
		}, nil
	case models.SyncTypeWooProducts:
		return r.wooFetcher(r.woo.GetProducts), func(item json.RawMessage) error {
			return ProcessWooProduct(r.db, item)
		}, nil
	case models.SyncTypeWooOrders:
		return r.wooFetcher(r.woo.GetOrders), func(item json.RawMessage) error {
			return ProcessWooOrder(r.db, item)
		}, nil
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownSyncType, syncType)
	}
}

// ghlContactsFetcher acquires a valid token per page (tokens can expire
// mid-run) and fetches a contact search page. A missing credential is
// fatal; a token that stays expired after refresh is an auth failure the
// caller resolves by re-authorizing.
func (r *Runner) ghlContactsFetcher(locationID string) Fetcher {
	return func(ctx context.Context, page int, opts FetchOptions) (*Page, error) {
		tok, err := r.tokens.GetValidToken(ctx, locationID)
		if err != nil {
			if errors.Is(err, token.ErrNotFound) {
				return nil, &FatalError{Err: err}
			}
			return nil, err
		}
		if tok.IsExpired() {
			return nil, &FatalError{Err: &AuthError{LocationID: locationID}}
		}

		result, err := r.ghl.SearchContacts(ctx, tok.AccessToken, locationID, page, opts.PageSize, opts.ModifiedAfter)
		if err != nil {
			return nil, err
		}
		return &Page{Items: result.Contacts, Total: result.Total}, nil
	}
}

type wooLister func(ctx context.Context, page, perPage int, modifiedAfter *time.Time) (*woo.Page, error)

func (r *Runner) wooFetcher(list wooLister) Fetcher {
	return func(ctx context.Context, page int, opts FetchOptions) (*Page, error) {
		result, err := list(ctx, page, opts.PageSize, opts.ModifiedAfter)
		if err != nil {
			return nil, err
		}
		return &Page{Items: result.Items, Total: result.Total, TotalPages: result.TotalPages}, nil
	}
}

// LastGhlSyncTime returns the incremental cursor for a location: the most
// recent per-contact GHL sync timestamp. Zero when no contact has synced,
// which callers treat as "do a full sync".
func (r *Runner) LastGhlSyncTime() (time.Time, error) {
	var contact models.Contact
	err := r.db.Where("ghl_last_sync IS NOT NULL").Order("ghl_last_sync DESC").First(&contact).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	if contact.GhlLastSync == nil {
		return time.Time{}, nil
	}
	return *contact.GhlLastSync, nil
}

func validSyncType(t string) bool {
	switch t {
	case models.SyncTypeGhlContacts, models.SyncTypeWooCustomers,
		models.SyncTypeWooProducts, models.SyncTypeWooOrders:
		return true
	}
	return false
}
