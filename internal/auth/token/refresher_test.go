package token

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/doctorsstudio/crmsync/internal/config"
	"github.com/doctorsstudio/crmsync/internal/db/models"
	"github.com/doctorsstudio/crmsync/internal/ghl"
)

func newTestRefresher(t *testing.T, db *gorm.DB, tokenURL string) *Refresher {
	t.Helper()
	cfg := config.GHL{
		ClientID:     "client-id",
		ClientSecret: "super-secret-client-key",
		TokenURL:     tokenURL,
	}
	return NewRefresher(db, NewStore(db), ghl.NewClient(config.GHL{}), cfg)
}

func seedToken(t *testing.T, db *gorm.DB, refreshToken string, expiresAt time.Time) *models.OAuth2Token {
	t.Helper()
	tok := &models.OAuth2Token{
		ID:           "tok-1",
		LocationID:   "loc-1",
		LocationName: "Main Clinic",
		AccessToken:  "old-access",
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}
	if err := db.Create(tok).Error; err != nil {
		t.Fatalf("seed token: %v", err)
	}
	return tok
}

func TestRefresh_RotatesTokenPair(t *testing.T) {
	db := newTestDB(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.PostFormValue("grant_type"); got != "refresh_token" {
			t.Errorf("grant_type = %q", got)
		}
		if got := r.PostFormValue("refresh_token"); got != "abc" {
			t.Errorf("refresh_token = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"new","refresh_token":"abc2","expires_in":3600,"token_type":"Bearer"}`))
	}))
	defer srv.Close()

	tok := seedToken(t, db, "abc", time.Now().Add(time.Minute))
	refresher := newTestRefresher(t, db, srv.URL)

	updated, err := refresher.Refresh(context.Background(), tok)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if updated.AccessToken != "new" || updated.RefreshToken != "abc2" {
		t.Fatalf("token pair not rotated: %+v", updated)
	}
	if updated.IsExpired() {
		t.Fatalf("refreshed token reported expired: expires at %v", updated.ExpiresAt)
	}
	wantExpiry := time.Now().Add(time.Hour)
	if updated.ExpiresAt.Before(wantExpiry.Add(-time.Minute)) || updated.ExpiresAt.After(wantExpiry.Add(time.Minute)) {
		t.Fatalf("expiry not derived from expires_in: %v", updated.ExpiresAt)
	}

	var logs []models.TokenRequestLog
	if err := db.Find(&logs).Error; err != nil {
		t.Fatalf("load logs: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected exactly 1 request log row, got %d", len(logs))
	}
	if logs[0].RequestType != models.RequestTypeRefresh || logs[0].Status != models.RequestStatusSuccess {
		t.Fatalf("unexpected log row: %+v", logs[0])
	}
}

func TestRefresh_RemoteRejectionIsFailSoft(t *testing.T) {
	db := newTestDB(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	expiresAt := time.Now().Add(-time.Minute)
	tok := seedToken(t, db, "revoked-refresh", expiresAt)
	refresher := newTestRefresher(t, db, srv.URL)

	got, err := refresher.Refresh(context.Background(), tok)
	if err != nil {
		t.Fatalf("remote rejection must not error: %v", err)
	}
	if got.AccessToken != "old-access" || !got.IsExpired() {
		t.Fatalf("expected the original expired token back, got %+v", got)
	}

	// The stored credential is untouched and the failure is on the audit trail.
	var stored models.OAuth2Token
	if err := db.First(&stored, "id = ?", "tok-1").Error; err != nil {
		t.Fatalf("load token: %v", err)
	}
	if stored.AccessToken != "old-access" {
		t.Fatalf("failed refresh replaced the stored token: %+v", stored)
	}

	var logs []models.TokenRequestLog
	if err := db.Find(&logs).Error; err != nil {
		t.Fatalf("load logs: %v", err)
	}
	if len(logs) != 1 || logs[0].Status != models.RequestStatusError {
		t.Fatalf("expected 1 error log row, got %+v", logs)
	}
}

func TestRefresh_TransportErrorPropagates(t *testing.T) {
	db := newTestDB(t)

	// Server closed before use: every request fails at the transport layer.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	tok := seedToken(t, db, "abc", time.Now().Add(-time.Minute))
	refresher := newTestRefresher(t, db, srv.URL)

	if _, err := refresher.Refresh(context.Background(), tok); err == nil {
		t.Fatal("expected a transport error")
	}

	var logs []models.TokenRequestLog
	if err := db.Find(&logs).Error; err != nil {
		t.Fatalf("load logs: %v", err)
	}
	if len(logs) != 1 || logs[0].Status != models.RequestStatusError {
		t.Fatalf("expected 1 error log row, got %+v", logs)
	}
}

func TestGetValidToken_SkipsRefreshWhenFresh(t *testing.T) {
	db := newTestDB(t)

	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	seedToken(t, db, "abc", time.Now().Add(time.Hour))
	refresher := newTestRefresher(t, db, srv.URL)

	tok, err := refresher.GetValidToken(context.Background(), "loc-1")
	if err != nil {
		t.Fatalf("get valid token: %v", err)
	}
	if tok.AccessToken != "old-access" {
		t.Fatalf("unexpected token: %+v", tok)
	}
	if called {
		t.Fatal("fresh token triggered a refresh call")
	}
}
