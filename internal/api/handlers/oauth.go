package handlers

import (
	"net/http"

	"golang.org/x/oauth2"

	"github.com/doctorsstudio/crmsync/internal/auth/token"
	"github.com/doctorsstudio/crmsync/internal/config"
)

// oauthConfig builds the authorization-code flow config for GoHighLevel.
func oauthConfig(cfg config.GHL) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       []string{cfg.Scope},
		Endpoint: oauth2.Endpoint{
			AuthURL:  cfg.AuthURL,
			TokenURL: cfg.TokenURL,
		},
	}
}

// OAuthConnectHandler redirects the operator to the GoHighLevel consent
// page for a location.
func OAuthConnectHandler(cfg config.GHL) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		locationID := r.URL.Query().Get("location_id")

		authURL := oauthConfig(cfg).AuthCodeURL("ghl_oauth",
			oauth2.SetAuthURLParam("locationId", locationID))
		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// OAuthCallbackHandler exchanges the authorization code for a token pair
// and stores it. The location id comes from the callback query when the
// token response does not carry one.
func OAuthCallbackHandler(refresher *token.Refresher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			writeError(w, http.StatusBadRequest, "missing required parameter: code")
			return
		}
		locationID := r.URL.Query().Get("locationId")
		if locationID == "" {
			locationID = r.URL.Query().Get("location_id")
		}

		tok, err := refresher.Exchange(r.Context(), code, locationID)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"message":       "Authorization complete",
			"location_id":   tok.LocationID,
			"location_name": tok.LocationName,
			"expires_at":    tok.ExpiresAt,
		})
	}
}
