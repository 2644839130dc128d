package token

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/doctorsstudio/crmsync/internal/config"
	"github.com/doctorsstudio/crmsync/internal/db/models"
	"github.com/doctorsstudio/crmsync/internal/ghl"
	"github.com/doctorsstudio/crmsync/internal/oplog"
	"github.com/doctorsstudio/crmsync/internal/util"
)

// defaultExpiresIn is used when the token response omits expires_in (24h).
const defaultExpiresIn = 86400

// tokenResponse is the token endpoint's success body.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	LocationID   string `json:"locationId"`
	Error        string `json:"error"`
}

// Refresher exchanges and refreshes OAuth2 tokens against the GoHighLevel
// token endpoint. Every attempt, success or failure, writes exactly one
// TokenRequestLog row carrying the outgoing payload and the response.
type Refresher struct {
	db    *gorm.DB
	store *Store
	http  *resty.Client
	ghl   *ghl.Client
	cfg   config.GHL
}

// NewRefresher builds a refresher with a bounded request timeout.
func NewRefresher(db *gorm.DB, store *Store, ghlClient *ghl.Client, cfg config.GHL) *Refresher {
	return &Refresher{
		db:    db,
		store: store,
		http:  resty.New().SetTimeout(30 * time.Second),
		ghl:   ghlClient,
		cfg:   cfg,
	}
}

// SetTokenURL overrides the token endpoint. Used by tests.
func (r *Refresher) SetTokenURL(u string) { r.cfg.TokenURL = u }

// GetValidToken returns the token for a location, refreshing it first when
// it is expired or about to expire. The returned token may still be expired
// if the refresh failed remotely; callers must check IsExpired.
func (r *Refresher) GetValidToken(ctx context.Context, locationID string) (*models.OAuth2Token, error) {
	tok, err := r.store.GetToken(locationID)
	if err != nil {
		return nil, err
	}
	if tok.IsExpired() {
		return r.Refresh(ctx, tok)
	}
	return tok, nil
}

// Refresh exchanges the refresh token for a new access token pair.
//
// Remote-side failures (non-2xx status, unparsable body) are fail-soft: the
// attempt is logged and the original, still-expired token is returned with a
// nil error. Only transport failures propagate as errors.
func (r *Refresher) Refresh(ctx context.Context, tok *models.OAuth2Token) (*models.OAuth2Token, error) {
	oplog.Event(r.db, fmt.Sprintf("Attempting to refresh token for location %s", tok.LocationID),
		models.LogTypeOAuth, models.LogStatusInProgress, nil)

	payload := map[string]string{
		"client_id":     r.cfg.ClientID,
		"client_secret": r.cfg.ClientSecret,
		"grant_type":    "refresh_token",
		"refresh_token": tok.RefreshToken,
	}

	resp, body, err := r.postTokenEndpoint(ctx, payload)
	if err != nil {
		r.writeLog(&tok.ID, models.RequestTypeRefresh, models.RequestStatusError,
			fmt.Sprintf("transport error during token refresh: %v", err), payload, nil)
		oplog.Event(r.db, fmt.Sprintf("Error refreshing token for location %s", tok.LocationID),
			models.LogTypeOAuth, models.LogStatusError, map[string]any{"error": err.Error()})
		return nil, err
	}

	if resp.IsError() || body.AccessToken == "" {
		errMsg := body.Error
		if errMsg == "" {
			errMsg = "unknown error"
		}
		r.writeLog(&tok.ID, models.RequestTypeRefresh, models.RequestStatusError,
			fmt.Sprintf("failed to refresh token: %s (status %d)", errMsg, resp.StatusCode()),
			payload, map[string]any{"status": resp.StatusCode(), "body": util.TruncateLog(resp.String(), util.DefaultLogMaxLen)})
		log.Printf("❌ Token refresh failed for location %s: %s", tok.LocationID, errMsg)
		return tok, nil // fail-soft: caller re-checks IsExpired
	}

	expiresIn := body.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = defaultExpiresIn
	}
	expiresAt := time.Now().Add(time.Duration(expiresIn) * time.Second)

	locationName := tok.LocationName
	if locationName == "" {
		locationName = r.fetchLocationName(ctx, body.AccessToken, tok.LocationID)
	}

	updated, err := r.store.Upsert(tok.LocationID, body.AccessToken, body.RefreshToken, expiresAt, locationName)
	if err != nil {
		r.writeLog(&tok.ID, models.RequestTypeRefresh, models.RequestStatusError,
			fmt.Sprintf("failed to persist refreshed token: %v", err), payload, nil)
		return nil, err
	}

	r.writeLog(&updated.ID, models.RequestTypeRefresh, models.RequestStatusSuccess, "", payload, map[string]any{
		"token_type": body.TokenType,
		"expires_in": expiresIn,
		"scope":      body.Scope,
	})
	oplog.Event(r.db, fmt.Sprintf("Successfully refreshed token for location %s", tok.LocationID),
		models.LogTypeOAuth, models.LogStatusSuccess, map[string]any{
			"location_id": tok.LocationID,
			"expires_at":  expiresAt.Format(time.RFC3339),
		})
	log.Printf("✅ Refreshed token for location %s (expires: %s)", tok.LocationID, expiresAt.Format(time.RFC3339))
	return updated, nil
}

// Exchange trades an authorization code for the initial token pair. Unlike
// Refresh, a remote rejection here is a hard error: there is no previous
// token to fall back on.
func (r *Refresher) Exchange(ctx context.Context, code, locationID string) (*models.OAuth2Token, error) {
	payload := map[string]string{
		"client_id":     r.cfg.ClientID,
		"client_secret": r.cfg.ClientSecret,
		"grant_type":    "authorization_code",
		"code":          code,
		"redirect_uri":  r.cfg.RedirectURI,
	}

	resp, body, err := r.postTokenEndpoint(ctx, payload)
	if err != nil {
		r.writeLog(nil, models.RequestTypeAuth, models.RequestStatusError,
			fmt.Sprintf("transport error during code exchange: %v", err), payload, nil)
		return nil, err
	}
	if resp.IsError() || body.AccessToken == "" {
		errMsg := body.Error
		if errMsg == "" {
			errMsg = "unknown error"
		}
		r.writeLog(nil, models.RequestTypeAuth, models.RequestStatusError,
			fmt.Sprintf("failed to exchange code for token: %s", errMsg),
			payload, map[string]any{"status": resp.StatusCode(), "body": util.TruncateLog(resp.String(), util.DefaultLogMaxLen)})
		return nil, fmt.Errorf("token exchange rejected: %s (status %d)", errMsg, resp.StatusCode())
	}

	// The token response may carry the authoritative location id.
	if body.LocationID != "" {
		locationID = body.LocationID
	}

	expiresIn := body.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = defaultExpiresIn
	}
	expiresAt := time.Now().Add(time.Duration(expiresIn) * time.Second)

	locationName := r.fetchLocationName(ctx, body.AccessToken, locationID)

	tok, err := r.store.Upsert(locationID, body.AccessToken, body.RefreshToken, expiresAt, locationName)
	if err != nil {
		return nil, err
	}

	r.writeLog(&tok.ID, models.RequestTypeAuth, models.RequestStatusSuccess, "", payload, map[string]any{
		"token_type": body.TokenType,
		"expires_in": expiresIn,
		"scope":      body.Scope,
	})
	oplog.Event(r.db, fmt.Sprintf("Authorized new token for location %s", locationID),
		models.LogTypeOAuth, models.LogStatusSuccess, map[string]any{"location_id": locationID})
	return tok, nil
}

func (r *Refresher) postTokenEndpoint(ctx context.Context, form map[string]string) (*resty.Response, *tokenResponse, error) {
	var body tokenResponse
	resp, err := r.http.R().
		SetContext(ctx).
		SetFormData(form).
		SetResult(&body).
		SetError(&body).
		Post(r.cfg.TokenURL)
	if err != nil {
		return nil, nil, err
	}
	// resty only unmarshals matching content types; fall back to a manual
	// parse so error bodies with odd headers still surface a message.
	if body.AccessToken == "" && body.Error == "" && len(resp.Body()) > 0 {
		_ = json.Unmarshal(resp.Body(), &body)
	}
	return resp, &body, nil
}

// fetchLocationName is best-effort: a failure never fails the token flow.
func (r *Refresher) fetchLocationName(ctx context.Context, accessToken, locationID string) string {
	name, err := r.ghl.GetLocationName(ctx, accessToken, locationID)
	if err != nil {
		log.Printf("⚠️ Failed to fetch location name for %s: %v", locationID, err)
		return ""
	}
	return name
}

// writeLog persists one TokenRequestLog row for an attempt. Secrets are
// masked before the payload is stored.
func (r *Refresher) writeLog(tokenID *string, requestType, status, errMsg string, request map[string]string, response map[string]any) {
	masked := make(map[string]string, len(request))
	for k, v := range request {
		switch k {
		case "client_secret", "refresh_token", "code":
			masked[k] = maskSecret(v)
		default:
			masked[k] = v
		}
	}
	reqBlob, _ := json.Marshal(masked)

	var respBlob string
	if response != nil {
		if b, err := json.Marshal(response); err == nil {
			respBlob = string(b)
		}
	}

	entry := models.TokenRequestLog{
		ID:           uuid.NewString(),
		TokenID:      tokenID,
		RequestType:  requestType,
		Status:       status,
		ErrorMessage: errMsg,
		RequestData:  string(reqBlob),
		ResponseData: respBlob,
	}
	if err := r.db.Create(&entry).Error; err != nil {
		log.Printf("⚠️ Failed to write token request log: %v", err)
	}
}

func maskSecret(s string) string {
	if len(s) < 8 {
		return "****"
	}
	return "..." + s[len(s)-4:]
}
