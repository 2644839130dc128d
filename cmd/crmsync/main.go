package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/doctorsstudio/crmsync/internal/api/handlers"
	"github.com/doctorsstudio/crmsync/internal/auth/token"
	"github.com/doctorsstudio/crmsync/internal/config"
	"github.com/doctorsstudio/crmsync/internal/db"
	"github.com/doctorsstudio/crmsync/internal/ghl"
	"github.com/doctorsstudio/crmsync/internal/logging"
	"github.com/doctorsstudio/crmsync/internal/oplog"
	"github.com/doctorsstudio/crmsync/internal/sync"
	"github.com/doctorsstudio/crmsync/internal/tasks"
	"github.com/doctorsstudio/crmsync/internal/woo"
)

func main() {
	// .env is optional; real deployments set env vars directly
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CRMSYNC_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	database, err := db.InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	ghlClient := ghl.NewClient(cfg.GHL)
	wooClient := woo.NewClient(cfg.Woo)

	tokenStore := token.NewStore(database)
	refresher := token.NewRefresher(database, tokenStore, ghlClient, cfg.GHL)

	runner := sync.NewRunner(database, cfg.Sync, refresher, ghlClient, wooClient)
	runner.Start(context.Background(), 2)

	scheduler := tasks.NewScheduler(database, tokenStore, refresher, runner)
	if err := scheduler.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer scheduler.Stop()

	r := chi.NewRouter()
	r.Use(logging.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", handlers.HealthHandler(database))

	// Optional admin auth middleware
	adminPassword := os.Getenv("CRMSYNC_ADMIN_PASSWORD")
	optionalAdminAuth := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminPassword == "" {
				next.ServeHTTP(w, r)
				return
			}
			_, pass, ok := r.BasicAuth()
			if !ok || pass != adminPassword {
				w.Header().Set("WWW-Authenticate", `Basic realm="CRM Sync Admin"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}

	// OAuth flow and inbound webhooks stay unauthenticated: the former is
	// driven by the provider's redirect, the latter by its webhook sender.
	r.Get("/oauth/connect", handlers.OAuthConnectHandler(cfg.GHL))
	r.Get("/oauth/callback", handlers.OAuthCallbackHandler(refresher))
	r.Post("/webhooks/appointments", handlers.AppointmentWebhookHandler(database))

	r.Route("/api", func(r chi.Router) {
		r.Use(optionalAdminAuth)

		r.Get("/dashboard", handlers.DashboardHandler(database))

		// Synced data
		r.Get("/contacts", handlers.ContactsHandler(database))
		r.Get("/contacts/{id}", handlers.ContactDetailHandler(database))
		r.Get("/orders", handlers.OrdersHandler(database))
		r.Get("/products", handlers.ProductsHandler(database))

		// Sync lifecycle
		r.Post("/sync", handlers.StartSyncHandler(runner))
		r.Get("/sync", handlers.SyncStatesHandler(runner.Tracker()))
		r.Get("/sync/{type}", handlers.SyncStateHandler(runner.Tracker()))
		r.Post("/sync/{id}/cancel", handlers.CancelSyncHandler(runner))

		// Tokens
		r.Get("/tokens", handlers.TokensHandler(tokenStore))
		r.Post("/tokens/{id}/refresh", handlers.RefreshTokenHandler(tokenStore, refresher))

		// Audit trails
		r.Get("/logs", handlers.SystemLogsHandler(database))
		r.Get("/logs/tokens", handlers.TokenLogsHandler(database))
	})

	oplog.Info(database, "CRM sync service started")
	log.Printf("🚀 CRM sync service starting on http://%s", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, r); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
