package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/doctorsstudio/crmsync/internal/auth/token"
)

// tokenView is a token row plus its derived expiry status.
type tokenView struct {
	ID           string `json:"id"`
	LocationID   string `json:"location_id"`
	LocationName string `json:"location_name"`
	ExpiresAt    string `json:"expires_at"`
	IsExpired    bool   `json:"is_expired"`
}

// TokensHandler lists stored OAuth tokens with their expiry status.
func TokensHandler(store *token.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		toks, err := store.List()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		views := make([]tokenView, 0, len(toks))
		for i := range toks {
			t := &toks[i]
			views = append(views, tokenView{
				ID:           t.ID,
				LocationID:   t.LocationID,
				LocationName: t.LocationName,
				ExpiresAt:    t.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"),
				IsExpired:    t.IsExpired(),
			})
		}
		writeJSON(w, http.StatusOK, views)
	}
}

// RefreshTokenHandler forces a refresh of one token. The refresh is
// fail-soft, so the handler re-checks expiry and reports 400 when the
// remote rejected the refresh and the token is still expired.
func RefreshTokenHandler(store *token.Store, refresher *token.Refresher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		tok, err := store.GetByID(id)
		if err != nil {
			writeError(w, http.StatusNotFound, "token not found")
			return
		}

		refreshed, err := refresher.Refresh(r.Context(), tok)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if refreshed.IsExpired() {
			writeError(w, http.StatusBadRequest, "token is still expired after refresh")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"message":    "Token refreshed",
			"expires_at": refreshed.ExpiresAt,
		})
	}
}
